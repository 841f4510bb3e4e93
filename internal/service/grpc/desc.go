package grpcsvc

import (
	"context"

	"google.golang.org/grpc"
)

const (
	serviceName = "pos.v1.SalesService"

	methodCreateSale       = "/" + serviceName + "/CreateSale"
	methodUpdateSale       = "/" + serviceName + "/UpdateSale"
	methodChangeSaleStatus = "/" + serviceName + "/ChangeSaleStatus"
	methodDeleteSale       = "/" + serviceName + "/DeleteSale"
	methodGetSale          = "/" + serviceName + "/GetSale"
	methodListSales        = "/" + serviceName + "/ListSales"
	methodListProducts     = "/" + serviceName + "/ListProducts"
	methodListCustomers    = "/" + serviceName + "/ListCustomers"
)

// SalesServer — серверная сторона pos.v1.SalesService.
type SalesServer interface {
	CreateSale(context.Context, *CreateSaleRequest) (*SaleResponse, error)
	UpdateSale(context.Context, *UpdateSaleRequest) (*SaleResponse, error)
	ChangeSaleStatus(context.Context, *ChangeSaleStatusRequest) (*SaleResponse, error)
	DeleteSale(context.Context, *DeleteSaleRequest) (*DeleteSaleResponse, error)
	GetSale(context.Context, *GetSaleRequest) (*GetSaleResponse, error)
	ListSales(context.Context, *ListSalesRequest) (*ListSalesResponse, error)
	ListProducts(context.Context, *ListProductsRequest) (*ListProductsResponse, error)
	ListCustomers(context.Context, *ListCustomersRequest) (*ListCustomersResponse, error)
}

// RegisterSalesServer регистрирует реализацию на gRPC-сервере.
func RegisterSalesServer(s grpc.ServiceRegistrar, srv SalesServer) {
	s.RegisterService(&salesServiceDesc, srv)
}

var salesServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*SalesServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateSale", Handler: unaryHandler(methodCreateSale, SalesServer.CreateSale)},
		{MethodName: "UpdateSale", Handler: unaryHandler(methodUpdateSale, SalesServer.UpdateSale)},
		{MethodName: "ChangeSaleStatus", Handler: unaryHandler(methodChangeSaleStatus, SalesServer.ChangeSaleStatus)},
		{MethodName: "DeleteSale", Handler: unaryHandler(methodDeleteSale, SalesServer.DeleteSale)},
		{MethodName: "GetSale", Handler: unaryHandler(methodGetSale, SalesServer.GetSale)},
		{MethodName: "ListSales", Handler: unaryHandler(methodListSales, SalesServer.ListSales)},
		{MethodName: "ListProducts", Handler: unaryHandler(methodListProducts, SalesServer.ListProducts)},
		{MethodName: "ListCustomers", Handler: unaryHandler(methodListCustomers, SalesServer.ListCustomers)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pos/v1/sales",
}

func unaryHandler[Req, Resp any](fullMethod string, call func(SalesServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		server := srv.(SalesServer)
		if interceptor == nil {
			return call(server, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(server, ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// SalesClient вызывает pos.v1.SalesService. Все вызовы идут с JSON-кодеком.
type SalesClient struct {
	cc grpc.ClientConnInterface
}

func NewSalesClient(cc grpc.ClientConnInterface) *SalesClient {
	return &SalesClient{cc: cc}
}

func (c *SalesClient) CreateSale(ctx context.Context, in *CreateSaleRequest, opts ...grpc.CallOption) (*SaleResponse, error) {
	return invoke[SaleResponse](ctx, c.cc, methodCreateSale, in, opts)
}

func (c *SalesClient) UpdateSale(ctx context.Context, in *UpdateSaleRequest, opts ...grpc.CallOption) (*SaleResponse, error) {
	return invoke[SaleResponse](ctx, c.cc, methodUpdateSale, in, opts)
}

func (c *SalesClient) ChangeSaleStatus(ctx context.Context, in *ChangeSaleStatusRequest, opts ...grpc.CallOption) (*SaleResponse, error) {
	return invoke[SaleResponse](ctx, c.cc, methodChangeSaleStatus, in, opts)
}

func (c *SalesClient) DeleteSale(ctx context.Context, in *DeleteSaleRequest, opts ...grpc.CallOption) (*DeleteSaleResponse, error) {
	return invoke[DeleteSaleResponse](ctx, c.cc, methodDeleteSale, in, opts)
}

func (c *SalesClient) GetSale(ctx context.Context, in *GetSaleRequest, opts ...grpc.CallOption) (*GetSaleResponse, error) {
	return invoke[GetSaleResponse](ctx, c.cc, methodGetSale, in, opts)
}

func (c *SalesClient) ListSales(ctx context.Context, in *ListSalesRequest, opts ...grpc.CallOption) (*ListSalesResponse, error) {
	return invoke[ListSalesResponse](ctx, c.cc, methodListSales, in, opts)
}

func (c *SalesClient) ListProducts(ctx context.Context, in *ListProductsRequest, opts ...grpc.CallOption) (*ListProductsResponse, error) {
	return invoke[ListProductsResponse](ctx, c.cc, methodListProducts, in, opts)
}

func (c *SalesClient) ListCustomers(ctx context.Context, in *ListCustomersRequest, opts ...grpc.CallOption) (*ListCustomersResponse, error) {
	return invoke[ListCustomersResponse](ctx, c.cc, methodListCustomers, in, opts)
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
