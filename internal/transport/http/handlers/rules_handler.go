package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/tikhomirovv/tg-moderator-ai/internal/domain/model"
	httperrors "github.com/tikhomirovv/tg-moderator-ai/internal/transport/http/errors"
)

type RuleLister interface {
	FindAllActive(ctx context.Context) ([]model.Rule, error)
}

type RulesHandler struct {
	rules  RuleLister
	logger *zap.Logger
}

func NewRulesHandler(rules RuleLister, logger *zap.Logger) *RulesHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RulesHandler{rules: rules, logger: logger}
}

func (h *RulesHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.rules == nil {
		writeInternal(w, "RULE_STORE_UNAVAILABLE", "rule store is unavailable")
		return
	}

	rules, err := h.rules.FindAllActive(r.Context())
	if err != nil {
		h.logger.Error("list active rules failed", zap.Error(err))
		writeInternal(w, "INTERNAL_ERROR", "failed to list rules")
		return
	}
	if rules == nil {
		rules = []model.Rule{}
	}

	httperrors.Write(w, http.StatusOK, struct {
		Rules []model.Rule `json:"rules"`
	}{Rules: rules})
}
