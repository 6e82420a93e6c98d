package memory

import (
	"context"
	"sort"

	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/repository"
)

type loanRepository struct {
	exec execFunc
}

func openLoanFor(st *state, userID, bookID string) (domain.Loan, bool) {
	for _, l := range st.loans {
		if l.UserID == userID && l.BookID == bookID && l.Status.IsOpen() {
			return l, true
		}
	}
	return domain.Loan{}, false
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	return r.exec(func(t *txn) error {
		if _, ok := t.st.loans[loan.ID]; ok {
			return repository.ErrDuplicateRecord
		}
		if _, ok := openLoanFor(t.st, loan.UserID, loan.BookID); ok && loan.Status.IsOpen() {
			return repository.ErrDuplicateRecord
		}
		loan.Version = 1
		loan.UpdatedOn = t.now
		t.st.loans[loan.ID] = *loan
		t.emit(domain.CollectionLoans, loan.ID, domain.ChangeOpCreated)
		return nil
	})
}

func (r *loanRepository) GetByID(ctx context.Context, id string) (*domain.Loan, error) {
	var out *domain.Loan
	err := r.exec(func(t *txn) error {
		l, ok := t.st.loans[id]
		if !ok {
			return repository.ErrRecordNotFound
		}
		out = &l
		return nil
	})
	return out, err
}

func (r *loanRepository) GetForUpdate(ctx context.Context, id string) (*domain.Loan, error) {
	return r.GetByID(ctx, id)
}

func (r *loanRepository) FindOpen(ctx context.Context, userID, bookID string) (*domain.Loan, error) {
	var out *domain.Loan
	err := r.exec(func(t *txn) error {
		l, ok := openLoanFor(t.st, userID, bookID)
		if !ok {
			return repository.ErrRecordNotFound
		}
		out = &l
		return nil
	})
	return out, err
}

func (r *loanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	return r.exec(func(t *txn) error {
		current, ok := t.st.loans[loan.ID]
		if !ok || current.Version != loan.Version {
			return repository.ErrEditConflict
		}
		loan.Version++
		loan.UpdatedOn = t.now
		t.st.loans[loan.ID] = *loan
		t.emit(domain.CollectionLoans, loan.ID, domain.ChangeOpUpdated)
		return nil
	})
}

func (r *loanRepository) collect(match func(domain.Loan) bool, newestFirst bool) ([]domain.Loan, error) {
	var loans []domain.Loan
	err := r.exec(func(t *txn) error {
		for _, l := range t.st.loans {
			if match(l) {
				loans = append(loans, l)
			}
		}
		return nil
	})
	sort.Slice(loans, func(i, j int) bool {
		a, b := loans[i], loans[j]
		if !a.LoanDate.Equal(b.LoanDate) {
			if newestFirst {
				return a.LoanDate.After(b.LoanDate)
			}
			return a.LoanDate.Before(b.LoanDate)
		}
		return a.ID < b.ID
	})
	return loans, err
}

func (r *loanRepository) ListByUser(ctx context.Context, userID string) ([]domain.Loan, error) {
	return r.collect(func(l domain.Loan) bool { return l.UserID == userID }, true)
}

func (r *loanRepository) ListOpen(ctx context.Context) ([]domain.Loan, error) {
	return r.collect(func(l domain.Loan) bool { return l.Status.IsOpen() }, false)
}

func (r *loanRepository) CountOpenByBook(ctx context.Context, bookID string) (int, error) {
	loans, err := r.collect(func(l domain.Loan) bool { return l.BookID == bookID && l.Status.IsOpen() }, false)
	return len(loans), err
}

func (r *loanRepository) CountOpenByUser(ctx context.Context, userID string) (int, error) {
	loans, err := r.collect(func(l domain.Loan) bool { return l.UserID == userID && l.Status.IsOpen() }, false)
	return len(loans), err
}
