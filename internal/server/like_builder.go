package server

import (
	"log/slog"

	"kudos/internal/models"
)

// likeBuilder assembles property sets for a new Like and its AttachedLike
// relationship. Everything else on the entity is assigned by the store.
type likeBuilder struct {
	isPublic bool
	logger   *slog.Logger
}

func newLikeBuilder(isPublic bool, logger *slog.Logger) likeBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return likeBuilder{isPublic: isPublic, logger: logger}
}

func (b likeBuilder) entityProperties() models.Properties {
	return models.Properties{models.PropertyIsPublic: b.isPublic}
}

// relationshipProperties returns the AttachedLike property set, which is
// always empty. methodName is logged at debug level to identify the caller.
func (b likeBuilder) relationshipProperties(methodName string) models.Properties {
	b.logger.Debug("build like relationship properties", "method", methodName)
	return models.Properties{}
}
