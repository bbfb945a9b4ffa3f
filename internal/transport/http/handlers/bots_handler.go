package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/tikhomirovv/tg-moderator-ai/internal/domain/model"
	httperrors "github.com/tikhomirovv/tg-moderator-ai/internal/transport/http/errors"
)

type BotLister interface {
	ListActive(ctx context.Context) ([]model.Bot, error)
}

// BotsHandler lists active bots. Tokens never leave the model's JSON
// encoding, so the listing is safe to expose on the admin surface.
type BotsHandler struct {
	bots   BotLister
	logger *zap.Logger
}

func NewBotsHandler(bots BotLister, logger *zap.Logger) *BotsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BotsHandler{bots: bots, logger: logger}
}

func (h *BotsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.bots == nil {
		writeInternal(w, "BOT_STORE_UNAVAILABLE", "bot store is unavailable")
		return
	}

	bots, err := h.bots.ListActive(r.Context())
	if err != nil {
		h.logger.Error("list active bots failed", zap.Error(err))
		writeInternal(w, "INTERNAL_ERROR", "failed to list bots")
		return
	}
	if bots == nil {
		bots = []model.Bot{}
	}

	httperrors.Write(w, http.StatusOK, struct {
		Bots []model.Bot `json:"bots"`
	}{Bots: bots})
}
