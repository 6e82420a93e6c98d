package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/repository"
)

type returnRequestRepository struct {
	exec execFunc
}

func (r *returnRequestRepository) Create(ctx context.Context, req *domain.ReturnRequest) error {
	return r.exec(func(t *txn) error {
		if _, ok := t.st.returnRequests[req.ID]; ok {
			return repository.ErrDuplicateRecord
		}
		for _, other := range t.st.returnRequests {
			if other.LoanID == req.LoanID {
				return repository.ErrDuplicateRecord
			}
		}
		t.st.returnRequests[req.ID] = *req
		t.emit(domain.CollectionReturnRequests, req.ID, domain.ChangeOpCreated)
		return nil
	})
}

func (r *returnRequestRepository) GetByID(ctx context.Context, id string) (*domain.ReturnRequest, error) {
	var out *domain.ReturnRequest
	err := r.exec(func(t *txn) error {
		req, ok := t.st.returnRequests[id]
		if !ok {
			return repository.ErrRecordNotFound
		}
		out = &req
		return nil
	})
	return out, err
}

func (r *returnRequestRepository) GetByLoanID(ctx context.Context, loanID string) (*domain.ReturnRequest, error) {
	var out *domain.ReturnRequest
	err := r.exec(func(t *txn) error {
		for _, req := range t.st.returnRequests {
			if req.LoanID == loanID {
				c := req
				out = &c
				return nil
			}
		}
		return repository.ErrRecordNotFound
	})
	return out, err
}

func (r *returnRequestRepository) List(ctx context.Context) ([]domain.ReturnRequest, error) {
	var reqs []domain.ReturnRequest
	err := r.exec(func(t *txn) error {
		for _, req := range t.st.returnRequests {
			reqs = append(reqs, req)
		}
		return nil
	})
	sort.Slice(reqs, func(i, j int) bool {
		if !reqs[i].RequestDate.Equal(reqs[j].RequestDate) {
			return reqs[i].RequestDate.Before(reqs[j].RequestDate)
		}
		return reqs[i].ID < reqs[j].ID
	})
	return reqs, err
}

func (r *returnRequestRepository) Delete(ctx context.Context, id string) error {
	return r.exec(func(t *txn) error {
		if _, ok := t.st.returnRequests[id]; !ok {
			return repository.ErrRecordNotFound
		}
		delete(t.st.returnRequests, id)
		t.emit(domain.CollectionReturnRequests, id, domain.ChangeOpDeleted)
		return nil
	})
}

type membershipRequestRepository struct {
	exec execFunc
}

func (r *membershipRequestRepository) Create(ctx context.Context, req *domain.MembershipRequest) error {
	return r.exec(func(t *txn) error {
		if _, ok := t.st.membershipRequests[req.ID]; ok {
			return repository.ErrDuplicateRecord
		}
		for _, other := range t.st.membershipRequests {
			if strings.EqualFold(other.Email, req.Email) {
				return repository.ErrDuplicateRecord
			}
		}
		if req.CreatedOn.IsZero() {
			req.CreatedOn = t.now
		}
		t.st.membershipRequests[req.ID] = *req
		t.emit(domain.CollectionMembershipRequests, req.ID, domain.ChangeOpCreated)
		return nil
	})
}

func (r *membershipRequestRepository) GetByID(ctx context.Context, id string) (*domain.MembershipRequest, error) {
	var out *domain.MembershipRequest
	err := r.exec(func(t *txn) error {
		req, ok := t.st.membershipRequests[id]
		if !ok {
			return repository.ErrRecordNotFound
		}
		out = &req
		return nil
	})
	return out, err
}

func (r *membershipRequestRepository) List(ctx context.Context) ([]domain.MembershipRequest, error) {
	var reqs []domain.MembershipRequest
	err := r.exec(func(t *txn) error {
		for _, req := range t.st.membershipRequests {
			reqs = append(reqs, req)
		}
		return nil
	})
	sort.Slice(reqs, func(i, j int) bool {
		if !reqs[i].CreatedOn.Equal(reqs[j].CreatedOn) {
			return reqs[i].CreatedOn.Before(reqs[j].CreatedOn)
		}
		return reqs[i].ID < reqs[j].ID
	})
	return reqs, err
}

func (r *membershipRequestRepository) Delete(ctx context.Context, id string) error {
	return r.exec(func(t *txn) error {
		if _, ok := t.st.membershipRequests[id]; !ok {
			return repository.ErrRecordNotFound
		}
		delete(t.st.membershipRequests, id)
		t.emit(domain.CollectionMembershipRequests, id, domain.ChangeOpDeleted)
		return nil
	})
}

func (r *membershipRequestRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := r.exec(func(t *txn) error {
		for id, req := range t.st.membershipRequests {
			if req.CreatedOn.Before(cutoff) {
				delete(t.st.membershipRequests, id)
				t.emit(domain.CollectionMembershipRequests, id, domain.ChangeOpDeleted)
				n++
			}
		}
		return nil
	})
	return n, err
}
