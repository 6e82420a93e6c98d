// Package memory is an in-process store used for development and tests. Every
// unit of work runs against a private snapshot of the data that replaces the
// shared state only when the work succeeds, so a failed transition leaves no trace.
package memory

import (
	"context"
	"sync"
	"time"

	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/events"
	"shelfkeeper-backend/internal/repository"
)

type state struct {
	books              map[string]domain.Book
	users              map[string]domain.User
	loans              map[string]domain.Loan
	returnRequests     map[string]domain.ReturnRequest
	membershipRequests map[string]domain.MembershipRequest
	reviews            map[string]domain.Review
	settings           *domain.Settings
}

func newState() *state {
	return &state{
		books:              make(map[string]domain.Book),
		users:              make(map[string]domain.User),
		loans:              make(map[string]domain.Loan),
		returnRequests:     make(map[string]domain.ReturnRequest),
		membershipRequests: make(map[string]domain.MembershipRequest),
		reviews:            make(map[string]domain.Review),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.books {
		c.books[k] = copyBook(v)
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.loans {
		c.loans[k] = v
	}
	for k, v := range s.returnRequests {
		c.returnRequests[k] = v
	}
	for k, v := range s.membershipRequests {
		c.membershipRequests[k] = v
	}
	for k, v := range s.reviews {
		c.reviews[k] = v
	}
	if s.settings != nil {
		st := *s.settings
		c.settings = &st
	}
	return c
}

// txn is one unit of work: a snapshot plus the events it will publish on commit.
type txn struct {
	st     *state
	now    time.Time
	events []domain.ChangeEvent
}

func (t *txn) emit(c domain.Collection, id string, op domain.ChangeOp) {
	t.events = append(t.events, domain.ChangeEvent{Collection: c, ID: id, Op: op, At: t.now})
}

type execFunc func(fn func(t *txn) error) error

type unitOfWork struct {
	exec execFunc
}

func (u unitOfWork) Books() repository.BookRepository { return &bookRepository{exec: u.exec} }
func (u unitOfWork) Users() repository.UserRepository { return &userRepository{exec: u.exec} }
func (u unitOfWork) Loans() repository.LoanRepository { return &loanRepository{exec: u.exec} }
func (u unitOfWork) ReturnRequests() repository.ReturnRequestRepository {
	return &returnRequestRepository{exec: u.exec}
}
func (u unitOfWork) MembershipRequests() repository.MembershipRequestRepository {
	return &membershipRequestRepository{exec: u.exec}
}
func (u unitOfWork) Settings() repository.SettingsRepository {
	return &settingsRepository{exec: u.exec}
}
func (u unitOfWork) Reviews() repository.ReviewRepository { return &reviewRepository{exec: u.exec} }

// Store serialises all units of work behind one mutex. Calls made through the
// embedded UnitOfWork run as single-statement transactions.
type Store struct {
	unitOfWork

	mu  sync.Mutex
	st  *state
	pub events.Publisher
	now func() time.Time
}

var _ repository.Store = (*Store)(nil)

// NewStore creates an empty store. pub may be nil.
func NewStore(pub events.Publisher) *Store {
	s := &Store{st: newState(), pub: pub, now: time.Now}
	s.unitOfWork = unitOfWork{exec: s.run}
	return s
}

// SetClock overrides the time source used for timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) run(fn func(t *txn) error) error {
	s.mu.Lock()
	t := &txn{st: s.st.clone(), now: s.now()}
	err := fn(t)
	if err == nil {
		s.st = t.st
	}
	s.mu.Unlock()

	if err == nil && s.pub != nil {
		for _, ev := range t.events {
			s.pub.Publish(ev)
		}
	}
	return err
}

func (s *Store) RunInTx(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.run(func(t *txn) error {
		inTx := func(inner func(t *txn) error) error { return inner(t) }
		return fn(unitOfWork{exec: inTx})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}
