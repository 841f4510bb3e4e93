package grpcsvc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

// codeFor переводит доменную ошибку в gRPC-код.
func codeFor(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case domain.IsNotFound(err):
		return codes.NotFound
	case domain.IsValidation(err):
		return codes.InvalidArgument
	case domain.IsConflict(err):
		return codes.FailedPrecondition
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	default:
		return codes.Internal
	}
}

// toStatus логирует ошибку и возвращает gRPC-статус. Текст внутренних ошибок наружу не отдаётся.
func (s *SalesService) toStatus(operation string, err error, fields log.Fields) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	entry := s.logger.WithError(err).WithField("operation", operation).WithFields(fields)
	code := codeFor(err)
	if code == codes.Internal {
		entry.Error("sale rpc failed")
		return status.Error(codes.Internal, "internal error")
	}
	entry.Warn("sale rpc rejected")
	return status.Error(code, err.Error())
}

// failurePayload — сохранённая под idempotency-key ошибка.
type failurePayload struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
}

func encodeFailure(err error) (int, []byte) {
	st := status.Convert(err)
	code := st.Code()
	if code == codes.OK {
		code = codes.Internal
	}
	body, marshalErr := json.Marshal(failurePayload{
		Code:    int32(code), //nolint:gosec // codes.Code is a bounded enum value.
		Message: st.Message(),
	})
	if marshalErr != nil {
		body = nil
	}
	return httpStatusFromCode(code), body
}

func decodeFailure(body []byte, httpStatus int) error {
	var payload failurePayload
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil {
		if code, ok := grpcCodeFromInt32(payload.Code); ok && code != codes.OK {
			if payload.Message == "" {
				payload.Message = "previous request with the same idempotency key failed"
			}
			return status.Error(code, payload.Message)
		}
	}
	return status.Error(codeFromHTTPStatus(httpStatus), "previous request with the same idempotency key failed")
}

func grpcCodeFromInt32(value int32) (codes.Code, bool) {
	if value < int32(codes.OK) || value > int32(codes.Unauthenticated) {
		return codes.Internal, false
	}
	return codes.Code(uint32(value)), true
}

// httpStatusFromCode нужен только для хранения результата в общем формате idempotency-записи.
func httpStatusFromCode(code codes.Code) int {
	switch code {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.FailedPrecondition, codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func codeFromHTTPStatus(httpStatus int) codes.Code {
	switch httpStatus {
	case http.StatusBadRequest:
		return codes.InvalidArgument
	case http.StatusNotFound:
		return codes.NotFound
	case http.StatusConflict:
		return codes.FailedPrecondition
	case http.StatusGatewayTimeout:
		return codes.DeadlineExceeded
	default:
		return codes.Internal
	}
}
