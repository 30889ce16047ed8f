// Package resolution hosts the entity-resolution worker. Every index read
// and mutation runs on one dedicated goroutine, so resolution is
// deterministic for a given alias state and never races with itself.
// Ingestion runs stage their alias gains in a per-run session; the staged
// entries reach the shared in-memory index only when the run's database
// transaction has committed.
package resolution

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mezze/backend/internal/domain/catalog"
	"github.com/mezze/backend/internal/domain/partner"
	"github.com/mezze/backend/internal/domain/resolution"
	"github.com/mezze/backend/internal/domain/shared"
)

var (
	// ErrWorkerStopped indicates the resolution worker is not running
	ErrWorkerStopped = errors.New("resolution: worker stopped")
	// ErrSessionExists indicates a session is already open for the run
	ErrSessionExists = errors.New("resolution: session already open for run")
	// ErrSessionNotFound indicates no session is open for the run
	ErrSessionNotFound = errors.New("resolution: no session for run")
)

// Resolution is the outcome of a successful resolve
type Resolution struct {
	// EntityID is the matched canonical entity
	EntityID uuid.UUID
	// Value is the canonical name or alias that won the match
	Value string
	// Score is the similarity that carried the match, 1.0 for exact
	Score float64
	// NewAlias is the alias row to persist inside the run transaction when
	// the observed form was learned, nil when it was already known
	NewAlias *resolution.Alias
}

// Stats reports the size of the live indexes
type Stats struct {
	AccountEntries int `json:"account_entries"`
	ProductEntries int `json:"product_entries"`
	OpenSessions   int `json:"open_sessions"`
}

type stagedEntry struct {
	ownerID uuid.UUID
	value   string
}

// session is the actor-side state of one run: cloned indexes plus the
// delta to fold into the shared ones on commit
type session struct {
	origin   string
	accounts *resolution.Index
	products *resolution.Index

	stagedAccounts []stagedEntry
	stagedProducts []stagedEntry
}

// Service is the single-writer resolution worker
type Service struct {
	accountRepo partner.AccountRepository
	productRepo catalog.ProductRepository
	aliasRepo   resolution.AliasRepository
	cfg         resolution.Config
	logger      *zap.Logger

	accounts *resolution.Index
	products *resolution.Index
	sessions map[uuid.UUID]*session

	tasks chan func()
	quit  chan struct{}
	done  chan struct{}

	mu      sync.Mutex
	running bool
}

// NewService creates a resolution worker. Call Start before use.
func NewService(
	accountRepo partner.AccountRepository,
	productRepo catalog.ProductRepository,
	aliasRepo resolution.AliasRepository,
	cfg resolution.Config,
	logger *zap.Logger,
) *Service {
	return &Service{
		accountRepo: accountRepo,
		productRepo: productRepo,
		aliasRepo:   aliasRepo,
		cfg:         cfg,
		logger:      logger,
		sessions:    make(map[uuid.UUID]*session),
		tasks:       make(chan func()),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start warms the indexes from the store and starts the worker goroutine
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	accounts, err := s.loadAccounts(ctx)
	if err != nil {
		return err
	}
	products, err := s.loadProducts(ctx)
	if err != nil {
		return err
	}
	s.accounts = accounts
	s.products = products

	go s.loop()
	s.running = true

	s.logger.Info("resolution worker started",
		zap.Int("account_entries", accounts.Len()),
		zap.Int("product_entries", products.Len()),
	)
	return nil
}

// Stop stops the worker. In-flight calls finish; later calls fail with
// ErrWorkerStopped.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	close(s.quit)
	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.running = false
	s.logger.Info("resolution worker stopped")
	return nil
}

func (s *Service) loadAccounts(ctx context.Context) (*resolution.Index, error) {
	idx := resolution.NewIndex(s.cfg)

	all, err := s.accountRepo.FindAll(ctx, shared.Filter{})
	if err != nil {
		return nil, err
	}
	for i := range all {
		idx.Add(all[i].ID, all[i].Name)
	}

	aliases, err := s.aliasRepo.FindAllByType(ctx, resolution.OwnerTypeAccount)
	if err != nil {
		return nil, err
	}
	for i := range aliases {
		idx.Add(aliases[i].OwnerID, aliases[i].Value)
	}
	return idx, nil
}

func (s *Service) loadProducts(ctx context.Context) (*resolution.Index, error) {
	idx := resolution.NewIndex(s.cfg)

	all, err := s.productRepo.FindAll(ctx, shared.Filter{})
	if err != nil {
		return nil, err
	}
	for i := range all {
		idx.Add(all[i].ID, all[i].Name)
		idx.Add(all[i].ID, all[i].SKU)
	}

	aliases, err := s.aliasRepo.FindAllByType(ctx, resolution.OwnerTypeProduct)
	if err != nil {
		return nil, err
	}
	for i := range aliases {
		idx.Add(aliases[i].OwnerID, aliases[i].Value)
	}
	return idx, nil
}

// loop executes queued work one task at a time. The tasks channel is
// unbuffered: a send succeeds only when the loop is receiving, so no task
// can be stranded after quit.
func (s *Service) loop() {
	defer close(s.done)
	for {
		select {
		case fn := <-s.tasks:
			fn()
		case <-s.quit:
			return
		}
	}
}

// call runs fn on the worker goroutine and waits for it to finish
func (s *Service) call(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	wrapped := func() {
		fn()
		close(ran)
	}
	select {
	case s.tasks <- wrapped:
	case <-s.quit:
		return ErrWorkerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-ran
	return nil
}

// Begin opens a resolution session for a run. The session sees the index
// state as of now plus its own staged gains; other runs' uncommitted gains
// stay invisible.
func (s *Service) Begin(ctx context.Context, runID uuid.UUID, origin string) (*Session, error) {
	var beginErr error
	err := s.call(ctx, func() {
		if _, ok := s.sessions[runID]; ok {
			beginErr = ErrSessionExists
			return
		}
		s.sessions[runID] = &session{
			origin:   origin,
			accounts: s.accounts.Clone(),
			products: s.products.Clone(),
		}
	})
	if err != nil {
		return nil, err
	}
	if beginErr != nil {
		return nil, beginErr
	}
	return &Session{svc: s, runID: runID}, nil
}

// ApplyAlias folds one alias into the live index outside any session, for
// operator decisions that persist in their own transaction. Memory is
// rebuilt from the store on restart, so a crash between the two at worst
// re-queues the same name for review once.
func (s *Service) ApplyAlias(ctx context.Context, owner resolution.OwnerType, ownerID uuid.UUID, value string) error {
	if !owner.IsValid() {
		return shared.NewDomainError("INVALID_OWNER_TYPE", "Invalid alias owner type: "+string(owner))
	}
	return s.call(ctx, func() {
		s.indexFor(owner).Add(ownerID, value)
	})
}

// Stats returns the live index sizes
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.call(ctx, func() {
		stats = Stats{
			AccountEntries: s.accounts.Len(),
			ProductEntries: s.products.Len(),
			OpenSessions:   len(s.sessions),
		}
	})
	return stats, err
}

func (s *Service) indexFor(owner resolution.OwnerType) *resolution.Index {
	if owner == resolution.OwnerTypeProduct {
		return s.products
	}
	return s.accounts
}

// Session is the per-run handle onto the worker. Methods are safe to call
// from the run's goroutine; they serialize through the worker.
type Session struct {
	svc   *Service
	runID uuid.UUID
}

// ResolveAccount resolves an observed account name. A fuzzy or exact match
// stages the observed form as an alias gain; the caller persists
// Resolution.NewAlias inside the run transaction. Returns
// *resolution.UnresolvedError or *resolution.AmbiguousError on failure.
func (h *Session) ResolveAccount(ctx context.Context, observed string) (*Resolution, error) {
	return h.resolve(ctx, resolution.OwnerTypeAccount, observed)
}

// ResolveProduct resolves an observed product name or SKU. Products are
// never auto-created; unresolved names go to review.
func (h *Session) ResolveProduct(ctx context.Context, observed string) (*Resolution, error) {
	return h.resolve(ctx, resolution.OwnerTypeProduct, observed)
}

func (h *Session) resolve(ctx context.Context, owner resolution.OwnerType, observed string) (*Resolution, error) {
	var (
		result     *Resolution
		resolveErr error
	)
	err := h.svc.call(ctx, func() {
		st, ok := h.svc.sessions[h.runID]
		if !ok {
			resolveErr = ErrSessionNotFound
			return
		}
		idx := st.accounts
		if owner == resolution.OwnerTypeProduct {
			idx = st.products
		}

		cand, err := idx.Resolve(observed)
		if err != nil {
			resolveErr = err
			return
		}
		result = &Resolution{EntityID: cand.EntityID, Value: cand.Value, Score: cand.Score}
		if idx.Add(cand.EntityID, observed) {
			alias, err := resolution.NewAlias(owner, cand.EntityID, observed, st.origin)
			if err != nil {
				// Observed form not storable (e.g. over length); keep the
				// match, skip the gain.
				return
			}
			result.NewAlias = alias
			st.stage(owner, cand.EntityID, observed)
		}
	})
	if err != nil {
		return nil, err
	}
	if resolveErr != nil {
		return nil, resolveErr
	}
	return result, nil
}

// RegisterAccount stages a newly created account under this session: its
// canonical name and, when distinct, the observed form that triggered the
// creation. Returns the alias rows to persist inside the run transaction;
// the canonical name is stored as a self-alias so the store's uniqueness
// guard also covers names.
func (h *Session) RegisterAccount(ctx context.Context, accountID uuid.UUID, name, observed string) ([]*resolution.Alias, error) {
	var (
		rows   []*resolution.Alias
		regErr error
	)
	err := h.svc.call(ctx, func() {
		st, ok := h.svc.sessions[h.runID]
		if !ok {
			regErr = ErrSessionNotFound
			return
		}
		for _, value := range []string{name, observed} {
			if value == "" || !st.accounts.Add(accountID, value) {
				continue
			}
			alias, err := resolution.NewAlias(resolution.OwnerTypeAccount, accountID, value, st.origin)
			if err != nil {
				continue
			}
			rows = append(rows, alias)
			st.stage(resolution.OwnerTypeAccount, accountID, value)
		}
	})
	if err != nil {
		return nil, err
	}
	if regErr != nil {
		return nil, regErr
	}
	return rows, nil
}

// Teach stages an operator-supplied alias under this session and returns
// the row to persist inside the transaction, nil when the form is already
// known for the entity. Unlike Resolve it never scores: the operator's
// word is final.
func (h *Session) Teach(ctx context.Context, owner resolution.OwnerType, entityID uuid.UUID, observed string) (*resolution.Alias, error) {
	var (
		row      *resolution.Alias
		teachErr error
	)
	err := h.svc.call(ctx, func() {
		st, ok := h.svc.sessions[h.runID]
		if !ok {
			teachErr = ErrSessionNotFound
			return
		}
		idx := st.accounts
		if owner == resolution.OwnerTypeProduct {
			idx = st.products
		}
		if !idx.Add(entityID, observed) {
			return
		}
		alias, err := resolution.NewAlias(owner, entityID, observed, st.origin)
		if err != nil {
			teachErr = err
			return
		}
		row = alias
		st.stage(owner, entityID, observed)
	})
	if err != nil {
		return nil, err
	}
	if teachErr != nil {
		return nil, teachErr
	}
	return row, nil
}

// Commit folds the session's staged gains into the shared indexes and
// closes the session. Call only after the run transaction committed.
func (h *Session) Commit(ctx context.Context) error {
	var commitErr error
	err := h.svc.call(ctx, func() {
		st, ok := h.svc.sessions[h.runID]
		if !ok {
			commitErr = ErrSessionNotFound
			return
		}
		for _, e := range st.stagedAccounts {
			h.svc.accounts.Add(e.ownerID, e.value)
		}
		for _, e := range st.stagedProducts {
			h.svc.products.Add(e.ownerID, e.value)
		}
		delete(h.svc.sessions, h.runID)

		if n := len(st.stagedAccounts) + len(st.stagedProducts); n > 0 {
			h.svc.logger.Info("alias gains committed",
				zap.String("run_id", h.runID.String()),
				zap.Int("aliases", n),
			)
		}
	})
	if err != nil {
		return err
	}
	return commitErr
}

// Abort drops the session and everything it staged
func (h *Session) Abort(ctx context.Context) error {
	return h.svc.call(ctx, func() {
		delete(h.svc.sessions, h.runID)
	})
}

func (st *session) stage(owner resolution.OwnerType, ownerID uuid.UUID, value string) {
	entry := stagedEntry{ownerID: ownerID, value: value}
	if owner == resolution.OwnerTypeProduct {
		st.stagedProducts = append(st.stagedProducts, entry)
		return
	}
	st.stagedAccounts = append(st.stagedAccounts, entry)
}
