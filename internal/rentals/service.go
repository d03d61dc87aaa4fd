package rentals

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/super-videotheque/backend/internal/models"
	"github.com/super-videotheque/backend/pkg/apperror"
	"github.com/super-videotheque/backend/pkg/database"
	"github.com/super-videotheque/backend/pkg/lock"
	"github.com/super-videotheque/backend/pkg/queue"
)

// Store is the rental persistence used by the service.
type Store interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Rental, error)
	FindLatestByCode(ctx context.Context, code string) (*models.Rental, error)
	FindActive(ctx context.Context, movieID uuid.UUID, email string) (*models.Rental, error)
	Create(ctx context.Context, rental *models.Rental) error
	ExpireStaleForPair(ctx context.Context, movieID uuid.UUID, email string, now time.Time) ([]uuid.UUID, error)
	MarkExpired(ctx context.Context, id uuid.UUID) error
	SaveSignedURL(ctx context.Context, id uuid.UUID, signedURL string) error
}

// MovieLookup resolves the movie a rental is for.
type MovieLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Movie, error)
}

// LicenseValidator checks a purchase code upstream.
type LicenseValidator interface {
	Validate(ctx context.Context, code string) (*models.LicenseValidation, error)
}

// PlaybackSigner mints signed embed URLs.
type PlaybackSigner interface {
	SignPlayback(resourcePath string, ttlSeconds int64) string
}

// Locker serializes work on one key across processes.
type Locker interface {
	Lock(ctx context.Context, key string) (lock.Unlock, error)
}

// ArchiveQueue receives expired rentals for archiving.
type ArchiveQueue interface {
	EnqueueRentalArchive(ctx context.Context, payload queue.RentalArchivePayload) error
}

// Config holds the rental rules.
type Config struct {
	DefaultRentalHours int
	SignedURLMaxTTL    time.Duration
}

// Result is a rental with the URL minted for this request, if any.
type Result struct {
	Rental    *models.Rental `json:"rental"`
	SignedURL string         `json:"signed_url,omitempty"`
	Reused    bool           `json:"reused"`
}

// Service runs the rental lifecycle: validate, bind, reuse or create, sign, expire.
type Service struct {
	store     Store
	movies    MovieLookup
	validator LicenseValidator
	signer    PlaybackSigner
	locker    Locker
	archive   ArchiveQueue
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a rental service. locker and archive may be nil.
func NewService(store Store, movies MovieLookup, validator LicenseValidator, signer PlaybackSigner, locker Locker, archive ArchiveQueue, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultRentalHours <= 0 {
		cfg.DefaultRentalHours = 48
	}
	if cfg.SignedURLMaxTTL <= 0 {
		cfg.SignedURLMaxTTL = time.Hour
	}
	return &Service{
		store:     store,
		movies:    movies,
		validator: validator,
		signer:    signer,
		locker:    locker,
		archive:   archive,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// NormalizeEmail lowercases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RentOrReuse returns the customer's active rental for the movie with a fresh URL, or creates one.
// Nothing is written unless the code is valid and bound to this customer.
func (s *Service) RentOrReuse(ctx context.Context, movieID uuid.UUID, email, code string) (*Result, error) {
	email = NormalizeEmail(email)
	code = strings.TrimSpace(code)

	movie, err := s.resolveMovie(ctx, movieID, apperror.ErrMovieNotFound)
	if err != nil {
		return nil, err
	}
	if _, err := s.ValidateForCustomer(ctx, code, email); err != nil {
		return nil, err
	}

	// Writes below complete even if the caller goes away.
	wctx := context.WithoutCancel(ctx)

	unlock, err := s.lockPair(ctx, movie.ID, email)
	if err != nil {
		return nil, err
	}
	defer unlock()

	res, err := s.reuse(wctx, movie, email)
	if err != nil || res != nil {
		return res, err
	}
	return s.create(wctx, movie, email, code)
}

// ValidateForCustomer validates code and, when email is given, checks that the code
// belongs to that customer.
func (s *Service) ValidateForCustomer(ctx context.Context, code, email string) (*models.LicenseValidation, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperror.ErrLicenseInvalid
	}
	lic, err := s.validator.Validate(ctx, code)
	if err != nil {
		return nil, err
	}
	email = NormalizeEmail(email)
	if email == "" {
		return lic, nil
	}

	prior, err := s.store.FindLatestByCode(ctx, code)
	if err != nil {
		return nil, apperror.Persistence("find rental by code", err)
	}
	if prior != nil && !strings.EqualFold(prior.CustomerEmail, email) {
		s.logger.Warn("license code reused by another customer", zap.String("rental_id", prior.ID.String()))
		return nil, apperror.ErrCodeAlreadyUsedByOtherIdentity
	}
	if lic.Email != "" && !strings.EqualFold(strings.TrimSpace(lic.Email), email) {
		return nil, apperror.ErrEmailMismatch
	}
	return lic, nil
}

// GetRental returns a rental with a fresh URL while it is active. The first read past
// its expiry moves it to expired; expired rentals come back without a URL.
func (s *Service) GetRental(ctx context.Context, id uuid.UUID) (*Result, error) {
	rental, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.Persistence("find rental", err)
	}
	if rental == nil {
		return nil, apperror.ErrRentalNotFound
	}
	if rental.Status == models.RentalStatusExpired {
		rental.LastSignedURL = ""
		return &Result{Rental: rental}, nil
	}

	wctx := context.WithoutCancel(ctx)
	ttl := s.ttlFor(rental, s.now())
	if ttl <= 0 {
		if err := s.expire(wctx, rental); err != nil {
			return nil, err
		}
		rental.LastSignedURL = ""
		return &Result{Rental: rental}, nil
	}

	movie, err := s.resolveMovie(ctx, rental.MovieID, apperror.ErrMovieMetadataMissing)
	if err != nil {
		return nil, err
	}
	signedURL, err := s.sign(wctx, rental, movie, ttl)
	if err != nil {
		return nil, err
	}
	return &Result{Rental: rental, SignedURL: signedURL}, nil
}

func (s *Service) resolveMovie(ctx context.Context, id uuid.UUID, missing error) (*models.Movie, error) {
	movie, err := s.movies.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.Persistence("find movie", err)
	}
	if movie == nil {
		return nil, missing
	}
	if movie.VideoPath == "" {
		return nil, apperror.Wrap(apperror.KindMovieMetadataMissing, "movie metadata missing for rental",
			errors.New("movie "+id.String()+" has no video path"))
	}
	return movie, nil
}

func (s *Service) lockPair(ctx context.Context, movieID uuid.UUID, email string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	key := "rental:" + movieID.String() + ":" + email
	unlock, err := s.locker.Lock(ctx, key)
	switch {
	case err == nil:
		return func() {
			if err := unlock(context.Background()); err != nil {
				s.logger.Warn("release rental lock", zap.Error(err), zap.String("movie_id", movieID.String()))
			}
		}, nil
	case errors.Is(err, lock.ErrNotObtained):
		return nil, apperror.ErrRentalInProgress
	case ctx.Err() != nil:
		return nil, apperror.Wrap(apperror.KindInternal, "request cancelled", err)
	default:
		// The unique index still guards creation without the lock.
		s.logger.Warn("rental lock unavailable, continuing without it", zap.Error(err))
		return func() {}, nil
	}
}

// reuse returns nil when the pair has no usable active rental.
func (s *Service) reuse(ctx context.Context, movie *models.Movie, email string) (*Result, error) {
	active, err := s.store.FindActive(ctx, movie.ID, email)
	if err != nil {
		return nil, apperror.Persistence("find active rental", err)
	}
	if active == nil {
		return nil, nil
	}
	ttl := s.ttlFor(active, s.now())
	if ttl <= 0 {
		if err := s.expire(ctx, active); err != nil {
			return nil, err
		}
		return nil, nil
	}
	signedURL, err := s.sign(ctx, active, movie, ttl)
	if err != nil {
		return nil, err
	}
	s.logger.Info("rental reused", zap.String("rental_id", active.ID.String()), zap.Int64("ttl", ttl))
	return &Result{Rental: active, SignedURL: signedURL, Reused: true}, nil
}

func (s *Service) create(ctx context.Context, movie *models.Movie, email, code string) (*Result, error) {
	hours := movie.RentalDurationHours
	if hours <= 0 {
		hours = s.cfg.DefaultRentalHours
	}
	now := s.now()

	stale, err := s.store.ExpireStaleForPair(ctx, movie.ID, email, now)
	if err != nil {
		return nil, apperror.Persistence("expire stale rentals", err)
	}
	for _, id := range stale {
		s.enqueueArchive(ctx, id, now)
	}

	rental := &models.Rental{
		MovieID:       movie.ID,
		CustomerEmail: email,
		LicenseCode:   code,
		Status:        models.RentalStatusActive,
		ExpiresAt:     now.Add(time.Duration(hours) * time.Hour),
	}
	if err := s.store.Create(ctx, rental); err != nil {
		if database.IsUniqueViolation(err, ActivePairConstraint) {
			// a concurrent request created it first
			res, rerr := s.reuse(ctx, movie, email)
			if rerr != nil || res != nil {
				return res, rerr
			}
		}
		return nil, apperror.Persistence("create rental", err)
	}

	signedURL, err := s.sign(ctx, rental, movie, s.ttlFor(rental, now))
	if err != nil {
		return nil, err
	}
	s.logger.Info("rental created",
		zap.String("rental_id", rental.ID.String()),
		zap.String("movie_id", movie.ID.String()),
		zap.Time("expires_at", rental.ExpiresAt),
	)
	return &Result{Rental: rental, SignedURL: signedURL}, nil
}

func (s *Service) sign(ctx context.Context, rental *models.Rental, movie *models.Movie, ttl int64) (string, error) {
	signedURL := s.signer.SignPlayback(movie.VideoPath, ttl)
	if err := s.store.SaveSignedURL(ctx, rental.ID, signedURL); err != nil {
		return "", apperror.Persistence("save signed url", err)
	}
	rental.LastSignedURL = signedURL
	return signedURL, nil
}

func (s *Service) expire(ctx context.Context, rental *models.Rental) error {
	if err := s.store.MarkExpired(ctx, rental.ID); err != nil {
		return apperror.Persistence("expire rental", err)
	}
	rental.Status = models.RentalStatusExpired
	s.logger.Info("rental expired", zap.String("rental_id", rental.ID.String()))
	s.enqueueArchive(ctx, rental.ID, s.now())
	return nil
}

func (s *Service) enqueueArchive(ctx context.Context, id uuid.UUID, at time.Time) {
	if s.archive == nil {
		return
	}
	if err := s.archive.EnqueueRentalArchive(ctx, queue.RentalArchivePayload{RentalID: id, ExpiredAt: at}); err != nil {
		s.logger.Warn("enqueue rental archive failed", zap.Error(err), zap.String("rental_id", id.String()))
	}
}

// ttlFor is the signed URL lifetime: time left on the rental, capped.
func (s *Service) ttlFor(rental *models.Rental, now time.Time) int64 {
	if rental.IsExpiredAt(now) {
		return 0
	}
	ttl := rental.SecondsUntilExpiry(now)
	if limit := int64(s.cfg.SignedURLMaxTTL / time.Second); ttl > limit {
		ttl = limit
	}
	return ttl
}
