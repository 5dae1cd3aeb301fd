package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"library-lending/library"
)

// Library is the part of the core the HTTP layer calls into.
// *library.LibraryManager implements it.
type Library interface {
	Search(ctx context.Context, query string) ([]*library.BookView, error)
	GetBook(ctx context.Context, id int64) (*library.BookView, error)
	Categories(ctx context.Context) ([]*library.Category, error)

	Borrow(ctx context.Context, rc library.RequestContext, bookID int64) (*library.Loan, error)
	Return(ctx context.Context, rc library.RequestContext, loanID int64) (*library.Book, error)
	ActiveLoans(ctx context.Context, rc library.RequestContext) ([]*library.Loan, error)

	AddBook(ctx context.Context, rc library.RequestContext, in library.BookInput) (*library.Book, error)
	UpdateBook(ctx context.Context, rc library.RequestContext, id int64, in library.BookInput) (*library.Book, error)
	DeleteBook(ctx context.Context, rc library.RequestContext, id int64) error
	AddCategory(ctx context.Context, rc library.RequestContext, name string) (*library.Category, error)
	AssignCategory(ctx context.Context, rc library.RequestContext, bookID, categoryID int64) (*library.BookCategory, error)

	Register(ctx context.Context, reg library.Registration) (*library.User, error)
	Authenticate(ctx context.Context, identifier, password string) (*library.User, error)
}

type Handler struct {
	lib    Library
	tokens *TokenIssuer
	logger *slog.Logger
}

func NewHandler(lib Library, tokens *TokenIssuer, logger *slog.Logger) *Handler {
	return &Handler{lib: lib, tokens: tokens, logger: logger}
}

type loginRequest struct {
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type categoryRequest struct {
	Name string `json:"name"`
}

func (h *Handler) Register(c *gin.Context) {
	var req library.Registration
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// Self-registration never grants admin rights.
	req.Role = library.RoleUser

	user, err := h.lib.Register(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.lib.Authenticate(c.Request.Context(), req.Name, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	token, expires, err := h.tokens.Issue(user)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "expires_at": expires, "user": user})
}

func (h *Handler) SearchBooks(c *gin.Context) {
	books, err := h.lib.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": books, "total": len(books)})
}

func (h *Handler) GetBook(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	book, err := h.lib.GetBook(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"book": book})
}

func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.lib.Categories(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *Handler) Borrow(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	loan, err := h.lib.Borrow(c.Request.Context(), requestContext(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"loan":    loan,
		"message": fmt.Sprintf("You borrowed %q. Please return it by %s.", loan.BookTitle, loan.DueAt.Format("2006-01-02")),
	})
}

func (h *Handler) ListLoans(c *gin.Context) {
	loans, err := h.lib.ActiveLoans(c.Request.Context(), requestContext(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"loans": loans})
}

func (h *Handler) Return(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	book, err := h.lib.Return(c.Request.Context(), requestContext(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"book": book, "message": fmt.Sprintf("You returned %q.", book.Title)})
}

func (h *Handler) AddBook(c *gin.Context) {
	var in library.BookInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	book, err := h.lib.AddBook(c.Request.Context(), requestContext(c), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"book": book})
}

func (h *Handler) UpdateBook(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in library.BookInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	book, err := h.lib.UpdateBook(c.Request.Context(), requestContext(c), id, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"book": book})
}

func (h *Handler) DeleteBook(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.lib.DeleteBook(c.Request.Context(), requestContext(c), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) AddCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	category, err := h.lib.AddCategory(c.Request.Context(), requestContext(c), req.Name)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"category": category})
}

func (h *Handler) AssignCategory(c *gin.Context) {
	bookID, ok := pathID(c, "id")
	if !ok {
		return
	}
	categoryID, ok := pathID(c, "category_id")
	if !ok {
		return
	}
	link, err := h.lib.AssignCategory(c.Request.Context(), requestContext(c), bookID, categoryID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assignment": link})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s: %q", name, c.Param(name))})
		return 0, false
	}
	return id, true
}
