package config

// SecurityLevel is the minimum caller required by an RPC
type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityMember                      // Any signed-in, unlocked user
	SecurityAdmin                       // Administrators only
)

func (l SecurityLevel) String() string {
	switch l {
	case SecurityPublic:
		return "public"
	case SecurityMember:
		return "member"
	default:
		return "admin"
	}
}

// EndpointSecurityConfig maps methods to their required security level.
// Ownership checks (self or admin) happen in the services.
var EndpointSecurityConfig = map[string]SecurityLevel{
	// AuthService - Public
	"/shelfkeeper.api.v1.AuthService/Login":        SecurityPublic,
	"/shelfkeeper.api.v1.AuthService/RefreshToken": SecurityPublic,

	// MembershipService
	"/shelfkeeper.api.v1.MembershipService/SubmitMembershipRequest":  SecurityPublic,
	"/shelfkeeper.api.v1.MembershipService/GetUser":                  SecurityMember,
	"/shelfkeeper.api.v1.MembershipService/UpdateUser":               SecurityMember,
	"/shelfkeeper.api.v1.MembershipService/ListMembershipRequests":   SecurityAdmin,
	"/shelfkeeper.api.v1.MembershipService/ApproveMembershipRequest": SecurityAdmin,
	"/shelfkeeper.api.v1.MembershipService/RejectMembershipRequest":  SecurityAdmin,
	"/shelfkeeper.api.v1.MembershipService/ListUsers":                SecurityAdmin,
	"/shelfkeeper.api.v1.MembershipService/LookupByCard":             SecurityAdmin,
	"/shelfkeeper.api.v1.MembershipService/DeleteUser":               SecurityAdmin,

	// CatalogService
	"/shelfkeeper.api.v1.CatalogService/GetBook":    SecurityPublic,
	"/shelfkeeper.api.v1.CatalogService/FindByISBN": SecurityPublic,
	"/shelfkeeper.api.v1.CatalogService/ListBooks":  SecurityPublic,
	"/shelfkeeper.api.v1.CatalogService/AddBook":    SecurityAdmin,
	"/shelfkeeper.api.v1.CatalogService/UpdateBook": SecurityAdmin,
	"/shelfkeeper.api.v1.CatalogService/DeleteBook": SecurityAdmin,

	// ReviewService
	"/shelfkeeper.api.v1.ReviewService/ListBookReviews": SecurityPublic,
	"/shelfkeeper.api.v1.ReviewService/AddReview":       SecurityMember,
	"/shelfkeeper.api.v1.ReviewService/UpdateReview":    SecurityMember,
	"/shelfkeeper.api.v1.ReviewService/ListUserReviews": SecurityMember,

	// LoanService
	"/shelfkeeper.api.v1.LoanService/Borrow":             SecurityMember,
	"/shelfkeeper.api.v1.LoanService/Renew":              SecurityMember,
	"/shelfkeeper.api.v1.LoanService/RequestReturn":      SecurityMember,
	"/shelfkeeper.api.v1.LoanService/GetLoan":            SecurityMember,
	"/shelfkeeper.api.v1.LoanService/ListLoansByUser":    SecurityMember,
	"/shelfkeeper.api.v1.LoanService/Confirm":            SecurityAdmin,
	"/shelfkeeper.api.v1.LoanService/ApproveReturn":      SecurityAdmin,
	"/shelfkeeper.api.v1.LoanService/RejectReturn":       SecurityAdmin,
	"/shelfkeeper.api.v1.LoanService/ForceReturn":        SecurityAdmin,
	"/shelfkeeper.api.v1.LoanService/DirectReturn":       SecurityAdmin,
	"/shelfkeeper.api.v1.LoanService/CancelPending":      SecurityAdmin,
	"/shelfkeeper.api.v1.LoanService/DeskBorrow":         SecurityAdmin,
	"/shelfkeeper.api.v1.LoanService/DeskReturn":         SecurityAdmin,
	"/shelfkeeper.api.v1.LoanService/ListOpenLoans":      SecurityAdmin,
	"/shelfkeeper.api.v1.LoanService/ListReturnRequests": SecurityAdmin,
	"/shelfkeeper.api.v1.LoanService/ReconcileBook":      SecurityAdmin,

	// SettingsService
	"/shelfkeeper.api.v1.SettingsService/GetSettings":    SecurityPublic,
	"/shelfkeeper.api.v1.SettingsService/UpdateSettings": SecurityAdmin,

	// ChangeService
	"/shelfkeeper.api.v1.ChangeService/WatchChanges": SecurityMember,

	// Health and reflection
	"/grpc.health.v1.Health/Check": SecurityPublic,
	"/grpc.health.v1.Health/Watch": SecurityPublic,
	"/grpc.reflection.v1.ServerReflection/ServerReflectionInfo":      SecurityPublic,
	"/grpc.reflection.v1alpha.ServerReflection/ServerReflectionInfo": SecurityPublic,
}

// GetSecurityLevel returns the security level for a given method
func GetSecurityLevel(method string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[method]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAdmin
}
