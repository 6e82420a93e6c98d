package grpc

import (
	"context"

	"google.golang.org/grpc"

	"shelfkeeper-backend/internal/domain"
	"shelfkeeper-backend/internal/service"
)

type CatalogHandler struct {
	catalogSvc service.CatalogService
}

func NewCatalogHandler(catalogSvc service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogSvc: catalogSvc}
}

const catalogServiceName = apiPackage + ".CatalogService"

var catalogServiceDesc = serviceDesc(catalogServiceName, []grpc.MethodDesc{
	unaryMethod(catalogServiceName, "AddBook", (*CatalogHandler).AddBook),
	unaryMethod(catalogServiceName, "GetBook", (*CatalogHandler).GetBook),
	unaryMethod(catalogServiceName, "FindByISBN", (*CatalogHandler).FindByISBN),
	unaryMethod(catalogServiceName, "ListBooks", (*CatalogHandler).ListBooks),
	unaryMethod(catalogServiceName, "UpdateBook", (*CatalogHandler).UpdateBook),
	unaryMethod(catalogServiceName, "DeleteBook", (*CatalogHandler).DeleteBook),
})

func (h *CatalogHandler) AddBook(ctx context.Context, req *BookRequest) (*BookResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	book, err := h.catalogSvc.AddBook(ctx, actor, &req.Book)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &BookResponse{Book: book}, nil
}

func (h *CatalogHandler) GetBook(ctx context.Context, req *BookIDRequest) (*BookResponse, error) {
	book, err := h.catalogSvc.GetBook(ctx, req.BookID)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &BookResponse{Book: book}, nil
}

func (h *CatalogHandler) FindByISBN(ctx context.Context, req *ISBNRequest) (*BookResponse, error) {
	book, err := h.catalogSvc.FindByISBN(ctx, req.ISBN)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &BookResponse{Book: book}, nil
}

func (h *CatalogHandler) ListBooks(ctx context.Context, req *ListBooksRequest) (*ListBooksResponse, error) {
	books, total, err := h.catalogSvc.ListBooks(ctx, domain.BookFilter{
		Search:        req.Search,
		AvailableOnly: req.AvailableOnly,
		Sort:          domain.BookSort(req.Sort),
		Page:          req.Page,
		PageSize:      req.PageSize,
	})
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &ListBooksResponse{Books: books, Total: total}, nil
}

func (h *CatalogHandler) UpdateBook(ctx context.Context, req *BookRequest) (*BookResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	book, err := h.catalogSvc.UpdateBook(ctx, actor, &req.Book)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &BookResponse{Book: book}, nil
}

func (h *CatalogHandler) DeleteBook(ctx context.Context, req *BookIDRequest) (*SuccessResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.catalogSvc.DeleteBook(ctx, actor, req.BookID); err != nil {
		return nil, toStatus(ctx, err)
	}
	return &SuccessResponse{Success: true}, nil
}
