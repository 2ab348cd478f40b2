package fb2

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"bookhub/internal/books"
)

// Handler serves the reading surface: table of contents and individual
// sections of a book's FB2 file.
type Handler struct {
	Books *books.Repo
}

func NewHandler(bookRepo *books.Repo) *Handler {
	return &Handler{Books: bookRepo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/books/:id/toc", h.toc)
	rg.GET("/books/:id/sections/:n", h.section)
}

func (h *Handler) load(c *gin.Context) *Book {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return nil
	}

	b, err := h.Books.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return nil
	}
	if b == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return nil
	}
	if b.FB2FilePath == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no file for this book"})
		return nil
	}

	parsed, err := ParseFile(b.FB2FilePath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "parse failed"})
		return nil
	}
	return parsed
}

func (h *Handler) toc(c *gin.Context) {
	parsed := h.load(c)
	if parsed == nil {
		return
	}

	titles := make([]gin.H, 0, len(parsed.Sections))
	for i, s := range parsed.Sections {
		titles = append(titles, gin.H{"n": i, "title": s.Title, "paragraphs": len(s.Paragraphs)})
	}
	c.JSON(http.StatusOK, gin.H{
		"title":    parsed.Title,
		"author":   parsed.Author,
		"sections": titles,
	})
}

func (h *Handler) section(c *gin.Context) {
	parsed := h.load(c)
	if parsed == nil {
		return
	}

	n, err := strconv.Atoi(strings.TrimSpace(c.Param("n")))
	if err != nil || n < 0 || n >= len(parsed.Sections) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid section"})
		return
	}

	s := parsed.Sections[n]
	c.JSON(http.StatusOK, gin.H{
		"n":          n,
		"total":      len(parsed.Sections),
		"title":      s.Title,
		"paragraphs": s.Paragraphs,
	})
}
