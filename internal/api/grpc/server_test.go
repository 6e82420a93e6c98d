package grpc_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	api "shelfkeeper-backend/internal/api/grpc"
	"shelfkeeper-backend/internal/api/grpc/interceptor"
	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/email"
	"shelfkeeper-backend/internal/events"
	"shelfkeeper-backend/internal/repository/memory"
	"shelfkeeper-backend/internal/security"
	"shelfkeeper-backend/internal/service"
)

type testServer struct {
	conn  *grpc.ClientConn
	store *memory.Store
	hub   *events.Hub
}

func startServer(t *testing.T) *testServer {
	t.Helper()
	hub := events.NewHub(16)
	store := memory.NewStore(hub)
	tokens := security.NewTokenManager("0123456789abcdef0123456789abcdef", time.Minute, time.Hour)

	settings := service.NewSettingsService(store, domain.DefaultSettings())
	emails := service.NewEmailService(email.LogSender{})
	handlers := api.Handlers{
		Loan:       api.NewLoanHandler(service.NewLoanService(store, settings), service.NewAvailabilityService(store)),
		Catalog:    api.NewCatalogHandler(service.NewCatalogService(store)),
		Review:     api.NewReviewHandler(service.NewReviewService(store)),
		Membership: api.NewMembershipHandler(service.NewMembershipService(store, emails, settings)),
		Settings:   api.NewSettingsHandler(settings),
		Auth:       api.NewAuthHandler(service.NewAuthService(store.Users(), tokens)),
		Change:     api.NewChangeHandler(hub),
	}

	auth := interceptor.NewAuthInterceptor(tokens, store.Users())
	srv := grpc.NewServer(grpc.UnaryInterceptor(auth.Unary()), grpc.StreamInterceptor(auth.Stream()))
	api.Register(srv, handlers)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(api.CodecName)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &testServer{conn: conn, store: store, hub: hub}
}

func (s *testServer) addUser(t *testing.T, id, emailAddr string, role domain.Role, locked bool) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, s.store.Users().Create(context.Background(), &domain.User{
		ID: id, Name: id, Email: emailAddr, PasswordHash: string(hash), Role: role, IsLocked: locked,
	}))
}

func (s *testServer) login(t *testing.T, emailAddr string) context.Context {
	t.Helper()
	var resp api.LoginResponse
	err := s.conn.Invoke(context.Background(), "/shelfkeeper.api.v1.AuthService/Login",
		&api.LoginRequest{Email: emailAddr, Password: "password123"}, &resp)
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+resp.AccessToken)
}

func TestLibraryAPI(t *testing.T) {
	s := startServer(t)
	s.addUser(t, "admin", "admin@example.com", domain.RoleAdmin, false)
	s.addUser(t, "pat", "pat@example.com", domain.RolePatron, false)
	adminCtx := s.login(t, "admin@example.com")
	patCtx := s.login(t, "pat@example.com")

	var book api.BookResponse
	t.Run("AddBook", func(t *testing.T) {
		err := s.conn.Invoke(adminCtx, "/shelfkeeper.api.v1.CatalogService/AddBook",
			&api.BookRequest{Book: domain.Book{Title: "Dune", Author: "Frank Herbert", TotalCopies: 1}}, &book)
		require.NoError(t, err)
		assert.Equal(t, 1, book.Book.AvailableCopies)
	})

	t.Run("AddBook requires admin", func(t *testing.T) {
		var resp api.BookResponse
		err := s.conn.Invoke(patCtx, "/shelfkeeper.api.v1.CatalogService/AddBook",
			&api.BookRequest{Book: domain.Book{Title: "X", Author: "Y", TotalCopies: 1}}, &resp)
		assert.Equal(t, codes.PermissionDenied, status.Code(err))
	})

	t.Run("ListBooks is public", func(t *testing.T) {
		var resp api.ListBooksResponse
		err := s.conn.Invoke(context.Background(), "/shelfkeeper.api.v1.CatalogService/ListBooks", &api.ListBooksRequest{}, &resp)
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Total)
	})

	t.Run("Borrow needs a token", func(t *testing.T) {
		var resp api.LoanResponse
		ctx := metadata.AppendToOutgoingContext(context.Background(), "user-id", "pat", "user-role", "admin")
		err := s.conn.Invoke(ctx, "/shelfkeeper.api.v1.LoanService/Borrow", &api.BorrowRequest{BookID: book.Book.ID}, &resp)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	var loan api.LoanResponse
	t.Run("Borrow and return", func(t *testing.T) {
		err := s.conn.Invoke(patCtx, "/shelfkeeper.api.v1.LoanService/Borrow", &api.BorrowRequest{BookID: book.Book.ID}, &loan)
		require.NoError(t, err)
		assert.Equal(t, domain.LoanStatusPending, loan.Loan.Status)
		assert.Equal(t, "pat", loan.Loan.UserID)

		var again api.LoanResponse
		err = s.conn.Invoke(patCtx, "/shelfkeeper.api.v1.LoanService/Borrow", &api.BorrowRequest{BookID: book.Book.ID}, &again)
		assert.Equal(t, codes.AlreadyExists, status.Code(err))

		var forced api.LoanResponse
		err = s.conn.Invoke(patCtx, "/shelfkeeper.api.v1.LoanService/ForceReturn", &api.LoanIDRequest{LoanID: loan.Loan.ID}, &forced)
		assert.Equal(t, codes.PermissionDenied, status.Code(err))

		var confirmed api.LoanResponse
		err = s.conn.Invoke(adminCtx, "/shelfkeeper.api.v1.LoanService/Confirm", &api.LoanIDRequest{LoanID: loan.Loan.ID}, &confirmed)
		require.NoError(t, err)
		assert.Equal(t, domain.LoanStatusActive, confirmed.Loan.Status)

		err = s.conn.Invoke(adminCtx, "/shelfkeeper.api.v1.LoanService/Confirm", &api.LoanIDRequest{LoanID: loan.Loan.ID}, &confirmed)
		assert.Equal(t, codes.FailedPrecondition, status.Code(err))

		var rr api.ReturnRequestResponse
		err = s.conn.Invoke(patCtx, "/shelfkeeper.api.v1.LoanService/RequestReturn", &api.LoanIDRequest{LoanID: loan.Loan.ID}, &rr)
		require.NoError(t, err)

		var approved api.LoanResponse
		err = s.conn.Invoke(adminCtx, "/shelfkeeper.api.v1.LoanService/ApproveReturn", &api.RequestIDRequest{RequestID: rr.Request.ID}, &approved)
		require.NoError(t, err)
		assert.Equal(t, domain.LoanStatusReturned, approved.Loan.Status)
		require.NotNil(t, approved.Book)
		assert.Equal(t, 1, approved.Book.AvailableCopies)
	})

	t.Run("Locked user is refused", func(t *testing.T) {
		locked := true
		var resp api.UserResponse
		err := s.conn.Invoke(adminCtx, "/shelfkeeper.api.v1.MembershipService/UpdateUser",
			&api.UpdateUserRequest{UserID: "pat", IsLocked: &locked}, &resp)
		require.NoError(t, err)

		var loans api.ListLoansResponse
		err = s.conn.Invoke(patCtx, "/shelfkeeper.api.v1.LoanService/ListLoansByUser", &api.ListLoansByUserRequest{}, &loans)
		assert.Equal(t, codes.PermissionDenied, status.Code(err))
	})

	t.Run("Unknown loan", func(t *testing.T) {
		var resp api.LoanViewResponse
		err := s.conn.Invoke(adminCtx, "/shelfkeeper.api.v1.LoanService/GetLoan", &api.LoanIDRequest{LoanID: "nope"}, &resp)
		assert.Equal(t, codes.NotFound, status.Code(err))
	})
}

func TestWatchChanges(t *testing.T) {
	s := startServer(t)
	s.addUser(t, "admin", "admin@example.com", domain.RoleAdmin, false)
	adminCtx := s.login(t, "admin@example.com")

	ctx, cancel := context.WithTimeout(adminCtx, 5*time.Second)
	defer cancel()
	stream, err := s.conn.NewStream(ctx, &grpc.StreamDesc{ServerStreams: true}, "/shelfkeeper.api.v1.ChangeService/WatchChanges")
	require.NoError(t, err)
	require.NoError(t, stream.SendMsg(&api.WatchChangesRequest{Collections: []domain.Collection{domain.CollectionBooks}}))
	require.NoError(t, stream.CloseSend())

	require.Eventually(t, func() bool { return s.hub.SubscriberCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	var book api.BookResponse
	err = s.conn.Invoke(adminCtx, "/shelfkeeper.api.v1.CatalogService/AddBook",
		&api.BookRequest{Book: domain.Book{Title: "Emma", Author: "Jane Austen", TotalCopies: 2}}, &book)
	require.NoError(t, err)

	var ev domain.ChangeEvent
	require.NoError(t, stream.RecvMsg(&ev))
	assert.Equal(t, domain.CollectionBooks, ev.Collection)
	assert.Equal(t, book.Book.ID, ev.ID)
	assert.Equal(t, domain.ChangeOpCreated, ev.Op)
}

func TestReviewAPI(t *testing.T) {
	s := startServer(t)
	s.addUser(t, "admin", "admin@example.com", domain.RoleAdmin, false)
	s.addUser(t, "pat", "pat@example.com", domain.RolePatron, false)
	adminCtx := s.login(t, "admin@example.com")
	patCtx := s.login(t, "pat@example.com")

	var book api.BookResponse
	require.NoError(t, s.conn.Invoke(adminCtx, "/shelfkeeper.api.v1.CatalogService/AddBook",
		&api.BookRequest{Book: domain.Book{Title: "Emma", Author: "Jane Austen", TotalCopies: 1}}, &book))

	ctx, cancel := context.WithTimeout(patCtx, 5*time.Second)
	defer cancel()
	stream, err := s.conn.NewStream(ctx, &grpc.StreamDesc{ServerStreams: true}, "/shelfkeeper.api.v1.ChangeService/WatchChanges")
	require.NoError(t, err)
	require.NoError(t, stream.SendMsg(&api.WatchChangesRequest{}))
	require.NoError(t, stream.CloseSend())
	require.Eventually(t, func() bool { return s.hub.SubscriberCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	t.Run("AddReview needs a token", func(t *testing.T) {
		var resp api.ReviewResponse
		err := s.conn.Invoke(context.Background(), "/shelfkeeper.api.v1.ReviewService/AddReview",
			&api.AddReviewRequest{BookID: book.Book.ID, Text: "x", Rating: 3}, &resp)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	var review api.ReviewResponse
	t.Run("AddReview reaches patron feed", func(t *testing.T) {
		err := s.conn.Invoke(patCtx, "/shelfkeeper.api.v1.ReviewService/AddReview",
			&api.AddReviewRequest{BookID: book.Book.ID, Text: "Witty", Rating: 4}, &review)
		require.NoError(t, err)
		assert.Equal(t, "Emma", review.Review.BookTitle)

		var ev domain.ChangeEvent
		require.NoError(t, stream.RecvMsg(&ev))
		assert.Equal(t, domain.CollectionReviews, ev.Collection)
		assert.Equal(t, review.Review.ID, ev.ID)
	})

	t.Run("Second review refused", func(t *testing.T) {
		var resp api.ReviewResponse
		err := s.conn.Invoke(patCtx, "/shelfkeeper.api.v1.ReviewService/AddReview",
			&api.AddReviewRequest{BookID: book.Book.ID, Text: "Again", Rating: 1}, &resp)
		assert.Equal(t, codes.AlreadyExists, status.Code(err))
	})

	t.Run("UpdateReview by another user", func(t *testing.T) {
		var resp api.ReviewResponse
		err := s.conn.Invoke(adminCtx, "/shelfkeeper.api.v1.ReviewService/UpdateReview",
			&api.UpdateReviewRequest{ReviewID: review.Review.ID, Text: "Edited", Rating: 1}, &resp)
		assert.Equal(t, codes.PermissionDenied, status.Code(err))
	})

	t.Run("Public reads carry the rating", func(t *testing.T) {
		var reviews api.ListReviewsResponse
		err := s.conn.Invoke(context.Background(), "/shelfkeeper.api.v1.ReviewService/ListBookReviews",
			&api.BookIDRequest{BookID: book.Book.ID}, &reviews)
		require.NoError(t, err)
		assert.Len(t, reviews.Reviews, 1)

		var got api.BookResponse
		err = s.conn.Invoke(context.Background(), "/shelfkeeper.api.v1.CatalogService/GetBook",
			&api.BookIDRequest{BookID: book.Book.ID}, &got)
		require.NoError(t, err)
		require.NotNil(t, got.Book.Rating)
		assert.Equal(t, 4.0, *got.Book.Rating)
	})

	t.Run("ListUserReviews defaults to caller", func(t *testing.T) {
		var mine api.ListReviewsResponse
		err := s.conn.Invoke(patCtx, "/shelfkeeper.api.v1.ReviewService/ListUserReviews", &api.UserIDRequest{}, &mine)
		require.NoError(t, err)
		assert.Len(t, mine.Reviews, 1)
	})
}
