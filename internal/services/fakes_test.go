package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/campusconnect/event-service/internal/authz"
	"github.com/campusconnect/event-service/internal/cache"
	"github.com/campusconnect/event-service/internal/events"
	"github.com/campusconnect/event-service/internal/models"
	"github.com/campusconnect/event-service/internal/repositories"
	"github.com/campusconnect/event-service/internal/validator"
)

// ===== IN-MEMORY STORE =====

// memStore is an in-memory stand-in for Postgres. Transactions are serialized
// by txMu, which gives the same exclusion as the row lock on events, and roll
// back by restoring a snapshot.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	events        map[string]models.Event
	history       []models.EventStatusChange
	media         map[string]models.EventMedia
	registrations map[string]models.Registration
	profiles      map[string]models.Profile

	failures map[string][]error
	calls    map[string]int

	// beforeEventCAS runs inside UpdateStatus before the expected status is compared
	beforeEventCAS func(e *models.Event)
}

func newMemStore() *memStore {
	return &memStore{
		events:        make(map[string]models.Event),
		media:         make(map[string]models.EventMedia),
		registrations: make(map[string]models.Registration),
		profiles:      make(map[string]models.Profile),
		failures:      make(map[string][]error),
		calls:         make(map[string]int),
	}
}

type memSnapshot struct {
	events        map[string]models.Event
	history       []models.EventStatusChange
	media         map[string]models.EventMedia
	registrations map[string]models.Registration
	profiles      map[string]models.Profile
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memSnapshot{
		events:        copyMap(s.events),
		history:       append([]models.EventStatusChange(nil), s.history...),
		media:         copyMap(s.media),
		registrations: copyMap(s.registrations),
		profiles:      copyMap(s.profiles),
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = snap.events
	s.history = snap.history
	s.media = snap.media
	s.registrations = snap.registrations
	s.profiles = snap.profiles
}

func copyMap[T any](in map[string]T) map[string]T {
	out := make(map[string]T, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// failNext makes the next len(errs) calls of op fail. Must be called without s.mu held.
func (s *memStore) failNext(op string, errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = append(s.failures[op], errs...)
}

// fail records a call of op and pops a queued failure. Callers hold s.mu.
func (s *memStore) fail(op string) error {
	s.calls[op]++
	queue := s.failures[op]
	if len(queue) == 0 {
		return nil
	}
	s.failures[op] = queue[1:]
	return queue[0]
}

func (s *memStore) callCount(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func notFound(what string) error {
	return fmt.Errorf("failed to get %s: %w", what, gorm.ErrRecordNotFound)
}

// ===== REPOSITORY =====

type fakeRepo struct {
	store    *memStore
	identity *stubIdentity
}

func (r *fakeRepo) Event() repositories.EventRepository               { return &fakeEvents{r.store} }
func (r *fakeRepo) EventHistory() repositories.EventHistoryRepository { return &fakeHistory{r.store} }
func (r *fakeRepo) Media() repositories.MediaRepository               { return &fakeMedia{r.store} }
func (r *fakeRepo) Registration() repositories.RegistrationRepository { return &fakeRegistrations{r.store} }
func (r *fakeRepo) Profile() repositories.ProfileRepository           { return &fakeProfiles{r.store} }
func (r *fakeRepo) Identity() repositories.IdentityProvider           { return r.identity }
func (r *fakeRepo) Ping(ctx context.Context) error                    { return nil }
func (r *fakeRepo) Close() error                                      { return nil }

func (r *fakeRepo) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	r.store.txMu.Lock()
	defer r.store.txMu.Unlock()

	snap := r.store.snapshot()
	if err := fn(r); err != nil {
		r.store.restore(snap)
		return err
	}
	return nil
}

// ----- events -----

type fakeEvents struct{ s *memStore }

func (f *fakeEvents) Create(ctx context.Context, event *models.Event) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.fail("event.Create"); err != nil {
		return err
	}
	if _, ok := f.s.events[event.ID]; ok {
		return gorm.ErrDuplicatedKey
	}
	now := time.Now().UTC()
	event.CreatedAt, event.UpdatedAt = now, now
	f.s.events[event.ID] = *event
	return nil
}

func (f *fakeEvents) GetByID(ctx context.Context, id string) (*models.Event, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.fail("event.GetByID"); err != nil {
		return nil, err
	}
	e, ok := f.s.events[id]
	if !ok {
		return nil, notFound("event")
	}
	return &e, nil
}

func (f *fakeEvents) GetByIDForUpdate(ctx context.Context, id string) (*models.Event, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeEvents) List(ctx context.Context, filters repositories.EventFilters) ([]*models.Event, int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.fail("event.List"); err != nil {
		return nil, 0, err
	}

	var out []*models.Event
	for _, e := range f.s.events {
		e := e
		if len(filters.Statuses) > 0 && !containsStatus(filters.Statuses, e.Status) {
			continue
		}
		if filters.OrganizerID != nil && e.OrganizerID != *filters.OrganizerID {
			continue
		}
		if filters.Category != nil && e.Category != *filters.Category {
			continue
		}
		if q := strings.ToLower(strings.TrimSpace(filters.Search)); q != "" &&
			!strings.Contains(strings.ToLower(e.Title+" "+e.Description+" "+e.Venue), q) {
			continue
		}
		if filters.DateFrom != nil && e.EventDate.Before(*filters.DateFrom) {
			continue
		}
		if filters.DateTo != nil && e.EventDate.After(*filters.DateTo) {
			continue
		}
		out = append(out, &e)
	}

	desc := filters.SortOrder == "desc"
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].EventDate, out[j].EventDate
		if filters.SortBy == "created_at" {
			a, b = out[i].CreatedAt, out[j].CreatedAt
		}
		if desc {
			return a.After(b)
		}
		return a.Before(b)
	})

	return paginate(out, filters.Limit, filters.Offset), int64(len(out)), nil
}

func (f *fakeEvents) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	e, ok := f.s.events[id]
	if !ok {
		return notFound("event")
	}
	applyEventUpdates(&e, updates)
	f.s.events[id] = e
	return nil
}

func (f *fakeEvents) UpdateStatus(ctx context.Context, id string, expected models.EventStatus, updates map[string]interface{}) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	e, ok := f.s.events[id]
	if !ok {
		return repositories.ErrStaleState
	}
	if f.s.beforeEventCAS != nil {
		f.s.beforeEventCAS(&e)
		f.s.events[id] = e
	}
	if e.Status != expected {
		return fmt.Errorf("event %s is no longer %s: %w", id, expected, repositories.ErrStaleState)
	}
	applyEventUpdates(&e, updates)
	f.s.events[id] = e
	return nil
}

func (f *fakeEvents) SetParticipantCount(ctx context.Context, id string, count int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	e := f.s.events[id]
	e.CurrentParticipants = int(count)
	f.s.events[id] = e
	return nil
}

func (f *fakeEvents) Delete(ctx context.Context, id string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.events[id]; !ok {
		return notFound("event")
	}
	delete(f.s.events, id)
	for rid, r := range f.s.registrations {
		if r.EventID == id {
			delete(f.s.registrations, rid)
		}
	}
	for mid, m := range f.s.media {
		if m.EventID == id {
			delete(f.s.media, mid)
		}
	}
	kept := f.s.history[:0]
	for _, h := range f.s.history {
		if h.EventID != id {
			kept = append(kept, h)
		}
	}
	f.s.history = kept
	return nil
}

func applyEventUpdates(e *models.Event, updates map[string]interface{}) {
	for k, v := range updates {
		switch k {
		case "status":
			e.Status = v.(models.EventStatus)
		case "reviewed_by":
			e.ReviewedBy = optionalString(v)
		case "reviewed_at":
			e.ReviewedAt = optionalTime(v)
		case "declined_reason":
			e.DeclinedReason = optionalString(v)
		case "venue":
			e.Venue = v.(string)
		case "title":
			e.Title = v.(string)
		case "description":
			e.Description = v.(string)
		case "category":
			e.Category = v.(string)
		case "event_date":
			e.EventDate = v.(time.Time)
		case "registration_deadline":
			e.RegistrationDeadline = v.(time.Time)
		case "max_participants":
			n := v.(int)
			e.MaxParticipants = &n
		case "requirements":
			e.Requirements = optionalString(v)
		case "image_url":
			e.ImageURL = optionalString(v)
		case "tags":
			e.Tags = v.(datatypes.JSONSlice[string])
		default:
			panic("unexpected event column " + k)
		}
	}
	e.UpdatedAt = time.Now().UTC()
}

// ----- history -----

type fakeHistory struct{ s *memStore }

func (f *fakeHistory) Create(ctx context.Context, change *models.EventStatusChange) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.fail("history.Create"); err != nil {
		return err
	}
	change.ID = uint(len(f.s.history) + 1)
	change.CreatedAt = time.Now().UTC()
	f.s.history = append(f.s.history, *change)
	return nil
}

func (f *fakeHistory) ListByEvent(ctx context.Context, eventID string) ([]*models.EventStatusChange, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.EventStatusChange
	for _, h := range f.s.history {
		if h.EventID == eventID {
			h := h
			out = append(out, &h)
		}
	}
	return out, nil
}

// ----- media -----

type fakeMedia struct{ s *memStore }

func (f *fakeMedia) Create(ctx context.Context, media *models.EventMedia) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	media.CreatedAt = time.Now().UTC()
	f.s.media[media.ID] = *media
	return nil
}

func (f *fakeMedia) GetByID(ctx context.Context, id string) (*models.EventMedia, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	m, ok := f.s.media[id]
	if !ok {
		return nil, notFound("media")
	}
	return &m, nil
}

func (f *fakeMedia) ListByEvent(ctx context.Context, eventID string) ([]*models.EventMedia, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.EventMedia
	for _, m := range f.s.media {
		if m.EventID == eventID {
			m := m
			out = append(out, &m)
		}
	}
	return out, nil
}

func (f *fakeMedia) Delete(ctx context.Context, id string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.media[id]; !ok {
		return notFound("media")
	}
	delete(f.s.media, id)
	return nil
}

// ----- registrations -----

type fakeRegistrations struct{ s *memStore }

func (f *fakeRegistrations) Create(ctx context.Context, r *models.Registration) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.fail("registration.Create"); err != nil {
		return err
	}
	for _, existing := range f.s.registrations {
		if existing.EventID == r.EventID && existing.UserID == r.UserID {
			return fmt.Errorf("failed to create registration: %w", gorm.ErrDuplicatedKey)
		}
	}
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now
	f.s.registrations[r.ID] = *r
	return nil
}

func (f *fakeRegistrations) GetByID(ctx context.Context, id string) (*models.Registration, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	r, ok := f.s.registrations[id]
	if !ok {
		return nil, notFound("registration")
	}
	return &r, nil
}

func (f *fakeRegistrations) GetByEventAndUser(ctx context.Context, eventID, userID string) (*models.Registration, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.fail("registration.GetByEventAndUser"); err != nil {
		return nil, err
	}
	for _, r := range f.s.registrations {
		if r.EventID == eventID && r.UserID == userID {
			return &r, nil
		}
	}
	return nil, notFound("registration")
}

func (f *fakeRegistrations) List(ctx context.Context, filters repositories.RegistrationFilters) ([]*models.Registration, int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.Registration
	for _, r := range f.s.registrations {
		r := r
		if filters.EventID != nil && r.EventID != *filters.EventID {
			continue
		}
		if filters.UserID != nil && r.UserID != *filters.UserID {
			continue
		}
		if filters.Status != nil && r.Status != *filters.Status {
			continue
		}
		if q := strings.ToLower(strings.TrimSpace(filters.Search)); q != "" &&
			!strings.Contains(strings.ToLower(r.FullName+" "+r.Email+" "+r.RollNumber), q) {
			continue
		}
		out = append(out, &r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RegistrationDate.Equal(out[j].RegistrationDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].RegistrationDate.Before(out[j].RegistrationDate)
	})
	return paginate(out, filters.Limit, filters.Offset), int64(len(out)), nil
}

func (f *fakeRegistrations) ListByUser(ctx context.Context, userID string) ([]*models.Registration, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.Registration
	for _, r := range f.s.registrations {
		if r.UserID != userID {
			continue
		}
		r := r
		if e, ok := f.s.events[r.EventID]; ok {
			r.Event = &e
		}
		out = append(out, &r)
	}
	return out, nil
}

func (f *fakeRegistrations) CountByStatus(ctx context.Context, eventID string, status models.RegistrationStatus) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var n int64
	for _, r := range f.s.registrations {
		if r.EventID == eventID && r.Status == status {
			n++
		}
	}
	return n, nil
}

func (f *fakeRegistrations) GetStats(ctx context.Context, eventID string) (*models.RegistrationStats, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	stats := &models.RegistrationStats{}
	for _, r := range f.s.registrations {
		if r.EventID == eventID {
			stats.Add(r.Status, 1)
		}
	}
	return stats, nil
}

func (f *fakeRegistrations) UpdateStatus(ctx context.Context, id string, expected models.RegistrationStatus, updates map[string]interface{}) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	r, ok := f.s.registrations[id]
	if !ok || r.Status != expected {
		return fmt.Errorf("registration %s is no longer %s: %w", id, expected, repositories.ErrStaleState)
	}
	for k, v := range updates {
		switch k {
		case "status":
			r.Status = v.(models.RegistrationStatus)
		case "approved_by":
			r.ApprovedBy = optionalString(v)
		case "approved_at":
			r.ApprovedAt = optionalTime(v)
		default:
			panic("unexpected registration column " + k)
		}
	}
	f.s.registrations[id] = r
	return nil
}

// ----- profiles -----

type fakeProfiles struct{ s *memStore }

func (f *fakeProfiles) Create(ctx context.Context, p *models.Profile) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.fail("profile.Create"); err != nil {
		return err
	}
	for _, existing := range f.s.profiles {
		if existing.ID == p.ID || strings.EqualFold(existing.Email, p.Email) {
			return gorm.ErrDuplicatedKey
		}
	}
	f.s.profiles[p.ID] = *p
	return nil
}

func (f *fakeProfiles) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.fail("profile.GetByID"); err != nil {
		return nil, err
	}
	p, ok := f.s.profiles[id]
	if !ok {
		return nil, notFound("profile")
	}
	return &p, nil
}

func (f *fakeProfiles) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, p := range f.s.profiles {
		if strings.EqualFold(p.Email, email) {
			return &p, nil
		}
	}
	return nil, notFound("profile")
}

func (f *fakeProfiles) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	p, ok := f.s.profiles[id]
	if !ok {
		return notFound("profile")
	}
	for k, v := range updates {
		switch k {
		case "full_name":
			p.FullName = v.(string)
		case "phone":
			p.Phone = optionalString(v)
		case "roll_number":
			p.RollNumber = optionalString(v)
		case "department":
			p.Department = optionalString(v)
		case "year_of_study":
			n := v.(int)
			p.YearOfStudy = &n
		case "role":
			p.Role = v.(models.UserRole)
		default:
			panic("unexpected profile column " + k)
		}
	}
	f.s.profiles[id] = p
	return nil
}

// ===== IDENTITY PROVIDER =====

type stubIdentity struct {
	mu        sync.Mutex
	accounts  map[string]repositories.NewAccount // by user id
	codes     map[string]repositories.SessionToken
	tokens    map[string]repositories.SessionToken
	deleted   []string
	createErr error
}

func newStubIdentity() *stubIdentity {
	return &stubIdentity{
		accounts: make(map[string]repositories.NewAccount),
		codes:    make(map[string]repositories.SessionToken),
		tokens:   make(map[string]repositories.SessionToken),
	}
}

func (s *stubIdentity) CreateAccount(ctx context.Context, account repositories.NewAccount) (*repositories.IdentityUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return nil, s.createErr
	}
	for _, a := range s.accounts {
		if strings.EqualFold(a.Email, account.Email) {
			return nil, repositories.ErrAccountExists
		}
	}
	id := uuid.NewString()
	s.accounts[id] = account
	return &repositories.IdentityUser{ID: id, Email: account.Email, FullName: account.FullName}, nil
}

func (s *stubIdentity) DeleteAccount(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.accounts, userID)
	s.deleted = append(s.deleted, userID)
	return nil
}

func (s *stubIdentity) ExchangeCode(ctx context.Context, code, state string) (*repositories.SessionToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.codes[code]
	if !ok {
		return nil, fmt.Errorf("exchange code: %w", repositories.ErrIdentity)
	}
	delete(s.codes, code)
	s.tokens[tok.AccessToken] = tok
	return &tok, nil
}

func (s *stubIdentity) ParseToken(ctx context.Context, token string) (*repositories.SessionToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[token]
	if !ok || time.Now().After(tok.ExpiresAt) {
		return nil, repositories.ErrInvalidToken
	}
	return &tok, nil
}

// issue registers a sign-in code that exchanges to a token for user.
func (s *stubIdentity) issue(code string, user repositories.IdentityUser) repositories.SessionToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok := repositories.SessionToken{
		AccessToken: "token-" + code,
		User:        user,
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	s.codes[code] = tok
	return tok
}

func (s *stubIdentity) accountCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}

// ===== FIXTURES =====

type testEnv struct {
	store     *memStore
	identity  *stubIdentity
	repo      *fakeRepo
	publisher *events.MockEventPublisher
	cache     *cache.CacheManager
	redis     *miniredis.Miniredis
	roles     *cache.RoleCache
	logger    *slog.Logger
	validator *validator.Validator
	now       time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := newMemStore()
	identity := newStubIdentity()
	cm := cache.NewCacheManager(client)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &testEnv{
		store:     store,
		identity:  identity,
		repo:      &fakeRepo{store: store, identity: identity},
		publisher: events.NewMockEventPublisher(logger),
		cache:     cm,
		redis:     mr,
		roles:     cache.NewRoleCache(cm, 15*time.Minute),
		logger:    logger,
		validator: validator.New(),
		now:       time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC),
	}
}

func (e *testEnv) clock() func() time.Time {
	return func() time.Time { return e.now }
}

func (e *testEnv) eventService() *eventService {
	svc := NewEventService(e.repo, e.publisher, e.logger, e.validator).(*eventService)
	svc.now = e.clock()
	return svc
}

func (e *testEnv) registrationService() *registrationService {
	svc := NewRegistrationService(e.repo, e.publisher, e.logger, e.validator).(*registrationService)
	svc.now = e.clock()
	return svc
}

func (e *testEnv) mediaService() MediaService {
	return NewMediaService(e.repo, e.publisher, e.logger, e.validator)
}

func (e *testEnv) identityService() IdentityService {
	return NewIdentityService(
		e.repo,
		e.roles,
		cache.NewSessionRevocations(e.cache),
		testPolicy,
		"SRMIST@2024",
		e.publisher,
		e.logger,
		e.validator,
	)
}

var testPolicy = authz.NewDomainPolicy([]string{"srmist.edu.in", "ist.srmtrichy.edu.in"})

var (
	executive = models.NewPrincipal("exec-1", "dean@srmist.edu.in", models.RoleExecutive)
	organizer = models.NewPrincipal("admin-1", "club@srmist.edu.in", models.RoleAdmin)
	otherAdm  = models.NewPrincipal("admin-2", "other@srmist.edu.in", models.RoleAdmin)
	student   = models.NewPrincipal("student-1", "asha@gmail.com", models.RoleStudent)
)

// seedEvent stores an event in status with a deadline and date relative to the env clock.
func (e *testEnv) seedEvent(status models.EventStatus, maxParticipants *int) *models.Event {
	event := models.Event{
		ID:                   uuid.NewString(),
		OrganizerID:          organizer.ID,
		Title:                "Robotics Expo",
		Description:          "A showcase of student robotics projects and demos.",
		Category:             "Technical",
		Venue:                "Main Auditorium",
		Tags:                 datatypes.JSONSlice[string]{},
		EventDate:            e.now.Add(14 * 24 * time.Hour),
		RegistrationDeadline: e.now.Add(7 * 24 * time.Hour),
		MaxParticipants:      maxParticipants,
		Status:               status,
		CreatedAt:            e.now,
		UpdatedAt:            e.now,
	}
	e.store.mu.Lock()
	e.store.events[event.ID] = event
	e.store.mu.Unlock()
	return &event
}

func (e *testEnv) seedProfile(p models.Principal, complete bool) {
	profile := models.Profile{ID: p.ID, Email: p.Email, FullName: "Asha Verma", Role: p.Role}
	if complete {
		profile.Phone = stringPtr("9876543210")
		profile.RollNumber = stringPtr("RA2111003010001")
	}
	e.store.mu.Lock()
	e.store.profiles[p.ID] = profile
	e.store.mu.Unlock()
}

func (e *testEnv) seedRegistration(eventID string, userID string, status models.RegistrationStatus) *models.Registration {
	r := models.Registration{
		ID:               uuid.NewString(),
		EventID:          eventID,
		UserID:           userID,
		FullName:         "Student " + userID,
		Email:            userID + "@gmail.com",
		Phone:            "9876543210",
		RollNumber:       "RA-" + userID,
		Status:           status,
		RegistrationDate: e.now,
	}
	e.store.mu.Lock()
	e.store.registrations[r.ID] = r
	e.store.mu.Unlock()
	return &r
}

func (e *testEnv) event(id string) models.Event {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	return e.store.events[id]
}

func (e *testEnv) registration(id string) models.Registration {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	return e.store.registrations[id]
}

func (e *testEnv) historyFor(eventID string) []models.EventStatusChange {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	var out []models.EventStatusChange
	for _, h := range e.store.history {
		if h.EventID == eventID {
			out = append(out, h)
		}
	}
	return out
}

// ===== HELPERS =====

func containsStatus(statuses []models.EventStatus, s models.EventStatus) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func optionalString(v interface{}) *string {
	switch s := v.(type) {
	case nil:
		return nil
	case string:
		return &s
	case *string:
		return s
	}
	panic(fmt.Sprintf("unexpected string value %T", v))
}

func optionalTime(v interface{}) *time.Time {
	switch t := v.(type) {
	case nil:
		return nil
	case time.Time:
		return &t
	case *time.Time:
		return t
	}
	panic(fmt.Sprintf("unexpected time value %T", v))
}

func intPtr(n int) *int {
	return &n
}
