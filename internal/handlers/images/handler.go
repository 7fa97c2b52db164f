package images

import (
	"log/slog"
	"net/http"

	"marketplace/internal/errors"
	"marketplace/internal/json"
)

type ImageHandler struct {
	svc *service
}

func NewImageHandler(svc *service) *ImageHandler {
	return &ImageHandler{svc: svc}
}

func (h *ImageHandler) PresignUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := PresignRequest{}
	if err := json.Read(r, &req); err != nil {
		slog.WarnContext(ctx, "Invalid request body", "error", err)
		errors.RespondError(w, r, errors.New(errors.ErrInvalidInput, "Request body was not valid JSON", err))
		return
	}

	resp, err := h.svc.PresignUpload(ctx, req)
	if err != nil {
		slog.WarnContext(ctx, "Failed to presign upload", "error", err)
		errors.RespondError(w, r, err)
		return
	}

	json.Write(w, http.StatusOK, resp)
}
