package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"kudos/internal/models"
	"kudos/internal/store"
)

const (
	defaultLikeGCBatchSize = 500
	defaultOrphanGrace     = 5 * time.Minute
)

// LikeService orchestrates the Like save/remove/get protocol over the
// repository. B is the bean type handed back to readers.
//
// Saves for the same (element, user) are not serialized. Two racing saves
// can both link a Like; the next save or remove by that user reconciles
// only the newest one, and older extras stay until removed one by one.
type LikeService[B any] struct {
	repo    store.RepositoryStore
	anchors store.AnchorResolver
	orphans store.OrphanStore
	convert func(models.Entity) (B, error)

	zones       []string
	maxPageSize int
	gcBatchSize int
	orphanGrace time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// LikeServiceConfig tunes a LikeService.
type LikeServiceConfig struct {
	SupportedZones []string
	MaxPageSize    int
	GCBatchSize    int
	OrphanGrace    time.Duration
	Logger         *slog.Logger
	Now            func() time.Time
}

// LikeQuery pages through the Likes on one element.
type LikeQuery struct {
	StartFrom              int
	PageSize               int
	ForLineage             bool
	ForDuplicateProcessing bool
	EffectiveTime          *time.Time
}

// MutationOptions carries the attribution and filters of a save or remove.
// A nil ExternalSource attributes the change to the requesting user.
type MutationOptions struct {
	ExternalSource         *models.ExternalSource
	EffectiveTime          *time.Time
	ForLineage             bool
	ForDuplicateProcessing bool
}

// OrphanGCResult reports one orphan sweep.
type OrphanGCResult struct {
	CandidateCount int      `json:"candidate_count"`
	DeletedCount   int      `json:"deleted_count"`
	FailedCount    int      `json:"failed_count"`
	CandidateGUIDs []string `json:"candidate_guids"`
	DryRun         bool     `json:"dry_run"`
}

// NewLikeService constructs a LikeService. orphans may be nil, which
// disables SweepOrphanLikes.
func NewLikeService[B any](repo store.RepositoryStore, anchors store.AnchorResolver, orphans store.OrphanStore, convert func(models.Entity) (B, error), cfg LikeServiceConfig) *LikeService[B] {
	svc := &LikeService[B]{
		repo:        repo,
		anchors:     anchors,
		orphans:     orphans,
		convert:     convert,
		zones:       append([]string(nil), cfg.SupportedZones...),
		maxPageSize: cfg.MaxPageSize,
		gcBatchSize: cfg.GCBatchSize,
		orphanGrace: cfg.OrphanGrace,
		logger:      cfg.Logger,
		now:         cfg.Now,
	}
	if svc.gcBatchSize <= 0 {
		svc.gcBatchSize = defaultLikeGCBatchSize
	}
	if svc.orphanGrace <= 0 {
		svc.orphanGrace = defaultOrphanGrace
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// GetLikes returns the Likes attached to elementGUID, newest first.
func (s *LikeService[B]) GetLikes(ctx context.Context, userID, elementGUID string, q LikeQuery) ([]B, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	userID, err := requireUserID(userID)
	if err != nil {
		return nil, err
	}
	elementGUID, err = requireGUID(elementGUID, "element guid")
	if err != nil {
		return nil, err
	}
	if err := s.checkPaging(q.StartFrom, q.PageSize); err != nil {
		return nil, err
	}

	entities, err := s.repo.GetAttachedElements(ctx, userID, store.AttachedQuery{
		TargetGUID:       elementGUID,
		RelationshipType: models.RelationshipAttachedLike,
		ResultType:       models.TypeLike,
		StartFrom:        q.StartFrom,
		PageSize:         q.PageSize,
		Ordering:         models.SequenceCreationRecent,
		PublicProperty:   models.PropertyIsPublic,
		QueryOptions: store.QueryOptions{
			Zones:                  s.zones,
			ForLineage:             q.ForLineage,
			ForDuplicateProcessing: q.ForDuplicateProcessing,
			EffectiveTime:          q.EffectiveTime,
		},
	})
	if err != nil {
		return nil, classifyStoreError(err)
	}

	beans := make([]B, 0, len(entities))
	for _, entity := range entities {
		bean, err := s.convert(entity)
		if err != nil {
			return nil, storeFailure(fmt.Errorf("convert like %s: %w", entity.GUID, err))
		}
		beans = append(beans, bean)
	}
	return beans, nil
}

// SaveLike replaces the requester's Like on elementGUID with a new one and
// returns its GUID. An empty GUID with a nil error means the repository
// declined to store the Like.
func (s *LikeService[B]) SaveLike(ctx context.Context, userID, elementGUID string, isPublic bool, opts MutationOptions) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	userID, err := requireUserID(userID)
	if err != nil {
		return "", err
	}
	elementGUID, err = requireGUID(elementGUID, "element guid")
	if err != nil {
		return "", err
	}

	if _, err := s.RemoveLike(ctx, userID, elementGUID, opts); err != nil {
		s.logger.Debug("prior like removal failed; continuing with save",
			"user", userID, "element_guid", elementGUID, "error", err)
	}

	builder := newLikeBuilder(isPublic, s.logger)
	likeGUID, err := s.repo.CreateEntity(ctx, userID, opts.ExternalSource, store.NewEntity{
		TypeName:   models.TypeLike,
		Properties: builder.entityProperties(),
	}, opts.EffectiveTime)
	if err != nil {
		return "", classifyStoreError(err)
	}
	if likeGUID == "" {
		s.logger.Debug("repository declined like", "user", userID, "element_guid", elementGUID)
		return "", nil
	}

	if err := s.anchors.StampAnchor(ctx, userID, elementGUID, likeGUID, s.queryOptions(opts)); err != nil {
		s.discardUnlinked(ctx, userID, likeGUID, opts)
		return "", classifyStoreError(err)
	}

	const method = "SaveLike"
	if err := s.repo.LinkEntities(ctx, userID, opts.ExternalSource, elementGUID, likeGUID,
		models.RelationshipAttachedLike, builder.relationshipProperties(method), opts.EffectiveTime); err != nil {
		s.logger.Debug("link like failed", "method", method, "like_guid", likeGUID, "error", err)
		s.discardUnlinked(ctx, userID, likeGUID, opts)
		return "", classifyStoreError(err)
	}

	return likeGUID, nil
}

// RemoveLike deletes the requester's own Like on elementGUID. It reports
// whether a Like was removed; having none to remove is not an error.
func (s *LikeService[B]) RemoveLike(ctx context.Context, userID, elementGUID string, opts MutationOptions) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	userID, err := requireUserID(userID)
	if err != nil {
		return false, err
	}
	elementGUID, err = requireGUID(elementGUID, "element guid")
	if err != nil {
		return false, err
	}

	likeGUID, err := s.repo.UnlinkOwned(ctx, userID, true, opts.ExternalSource, elementGUID,
		models.RelationshipAttachedLike, models.TypeLike, s.zones, opts.EffectiveTime)
	if err != nil {
		return false, classifyStoreError(err)
	}
	if likeGUID == "" {
		return false, nil
	}

	if err := s.repo.DeleteEntity(ctx, userID, opts.ExternalSource, likeGUID, models.TypeLike, false, opts.EffectiveTime); err != nil {
		return false, classifyStoreError(err)
	}
	return true, nil
}

// SweepOrphanLikes finds Likes older than the orphan grace period that have
// no incoming AttachedLike and, when apply is set, deletes them.
func (s *LikeService[B]) SweepOrphanLikes(ctx context.Context, batchSize int, apply bool) (OrphanGCResult, error) {
	result := OrphanGCResult{CandidateGUIDs: []string{}, DryRun: !apply}
	if s == nil || s.orphans == nil {
		return result, notImplemented(fmt.Errorf("orphan sweep is not configured"))
	}
	if batchSize < 0 {
		return result, badRequestCode(fmt.Errorf("batch_size must be >= 0"), ErrCodeInvalidPaging)
	}
	if batchSize == 0 {
		batchSize = s.gcBatchSize
	}

	cutoff := s.now().UTC().Add(-s.orphanGrace)
	refs, err := s.orphans.ListUnattachedEntities(ctx, models.TypeLike, models.RelationshipAttachedLike, cutoff, batchSize)
	if err != nil {
		return result, classifyStoreError(err)
	}

	result.CandidateCount = len(refs)
	for _, ref := range refs {
		result.CandidateGUIDs = append(result.CandidateGUIDs, ref.GUID)
	}
	if !apply || len(refs) == 0 {
		return result, nil
	}

	deleted, err := s.orphans.PurgeUnattachedEntities(ctx, models.RelationshipAttachedLike, result.CandidateGUIDs)
	if err != nil {
		return result, classifyStoreError(err)
	}
	result.DeletedCount = deleted
	result.FailedCount = len(refs) - deleted
	s.logger.Info("orphan likes swept", "candidates", result.CandidateCount, "deleted", deleted, "skipped", result.FailedCount)
	return result, nil
}

func (s *LikeService[B]) discardUnlinked(ctx context.Context, userID, likeGUID string, opts MutationOptions) {
	if err := s.repo.DeleteEntity(ctx, userID, opts.ExternalSource, likeGUID, models.TypeLike, false, opts.EffectiveTime); err != nil {
		s.logger.Warn("failed to discard unlinked like; orphan sweep will remove it",
			"user", userID, "like_guid", likeGUID, "error", err)
	}
}

func (s *LikeService[B]) checkPaging(startFrom, pageSize int) error {
	if startFrom < 0 {
		return badRequestCode(fmt.Errorf("start must be >= 0"), ErrCodeInvalidPaging)
	}
	if pageSize < 0 {
		return badRequestCode(fmt.Errorf("page_size must be >= 0"), ErrCodeInvalidPageSize)
	}
	if s.maxPageSize > 0 && pageSize > s.maxPageSize {
		return badRequestCode(fmt.Errorf("page_size must be <= %d", s.maxPageSize), ErrCodeInvalidPageSize)
	}
	return nil
}

func (s *LikeService[B]) queryOptions(opts MutationOptions) store.QueryOptions {
	return store.QueryOptions{
		Zones:                  s.zones,
		ForLineage:             opts.ForLineage,
		ForDuplicateProcessing: opts.ForDuplicateProcessing,
		EffectiveTime:          opts.EffectiveTime,
	}
}

func (s *LikeService[B]) ready() error {
	if s == nil || s.repo == nil || s.anchors == nil || s.convert == nil {
		return internalError(fmt.Errorf("like service is not configured"))
	}
	return nil
}
