package core

import (
	"log/slog"

	"github.com/conduitapi/conduit/internal/utils/databaseutils"
)

// Core is the service layer. It speaks raw SQL through the template and is
// transaction-agnostic: when the caller runs inside Session.DoTransactionally
// every query here joins that transaction via the context.
type Core struct {
	log         *slog.Logger
	sqlTemplate *databaseutils.SQLTemplate
}

func NewCore(log *slog.Logger, sqlTemplate *databaseutils.SQLTemplate) *Core {
	return &Core{
		log:         log,
		sqlTemplate: sqlTemplate,
	}
}
