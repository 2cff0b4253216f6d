package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/m2tx/manualchat/internal/model"
)

var kindStatus = map[model.ErrorKind]int{
	model.KindNoDocumentsFound:   http.StatusNotFound,
	model.KindUnknownDocument:    http.StatusNotFound,
	model.KindSessionNotFound:    http.StatusNotFound,
	model.KindNoDocumentSelected: http.StatusConflict,
	model.KindMissingCredential:  http.StatusUnauthorized,
	model.KindInvalidInput:       http.StatusBadRequest,
	model.KindUploadFailed:       http.StatusBadGateway,
	model.KindTransport:          http.StatusBadGateway,
	model.KindCacheExpired:       http.StatusGone,
	model.KindBlocked:            http.StatusUnprocessableEntity,
}

type errorResponse struct {
	Kind   model.ErrorKind `json:"kind"`
	Notice string          `json:"notice"`
	Reason string          `json:"reason,omitempty"`
	Error  string          `json:"error"`
}

func statusFor(kind model.ErrorKind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	body := errorResponse{Kind: model.KindOf(err), Error: err.Error()}
	var kerr *model.Error
	if errors.As(err, &kerr) {
		body.Reason = kerr.Reason
	}
	body.Notice = model.Notice(body.Kind)
	c.JSON(statusFor(body.Kind), body)
}
