// Item HTTP handlers.
//
//   - POST   /items, GET /items (paginated, weak ETag)
//   - GET    /items/search?q=
//   - GET    /items/{id}, PATCH /items/{id}, DELETE /items/{id}
//   - GET    /items/{id}/stats, POST /items/{id}/like
//   - GET    /items/{id}/comments, POST /items/{id}/comments
//   - DELETE /comments/{id}
package handlers

import (
	"fmt"
	"hash/fnv"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rtshare/exchange-backend/internal/domain"
	"github.com/rtshare/exchange-backend/internal/repo"
	"github.com/rtshare/exchange-backend/internal/services"
	"github.com/rtshare/exchange-backend/internal/utils"
)

// CreateItemRequest is the JSON payload for POST /items.
type CreateItemRequest struct {
	Title       string               `json:"title"       binding:"notblank,max=500" example:"Baby stroller"`
	Description string               `json:"description" binding:"max=5000"          example:"Lightly used, folds flat"`
	Category    string               `json:"category"    binding:"max=64"            example:"kids"`
	Condition   domain.ItemCondition `json:"condition"   binding:"omitempty,oneof=new like_new good fair" example:"good"`
	Quantity    int                  `json:"quantity"    binding:"gte=0"             example:"1"`
	Unit        string               `json:"unit"        binding:"max=32"            example:"pcs"`
	PhotoPath   string               `json:"photo_path"  binding:"max=1024"`
}

// UpdateItemRequest is the JSON payload for PATCH /items/{id}. Omitted fields
// are left unchanged. Status cannot be patched.
type UpdateItemRequest struct {
	Title       *string               `json:"title"       binding:"omitempty,notblank,max=500"`
	Description *string               `json:"description" binding:"omitempty,max=5000"`
	Category    *string               `json:"category"    binding:"omitempty,max=64"`
	Condition   *domain.ItemCondition `json:"condition"   binding:"omitempty,oneof=new like_new good fair"`
	Quantity    *int                  `json:"quantity"    binding:"omitempty,gt=0"`
	Unit        *string               `json:"unit"        binding:"omitempty,notblank,max=32"`
	PhotoPath   *string               `json:"photo_path"  binding:"omitempty,max=1024"`
}

// AddCommentRequest is the JSON payload for POST /items/{id}/comments.
type AddCommentRequest struct {
	Content string `json:"content" binding:"notblank,max=4000" example:"Is it still available?"`
}

// ListItemsResponse wraps a page of items.
type ListItemsResponse struct {
	Items      []domain.Item `json:"items"`
	Pagination Pagination    `json:"pagination"`
}

// SearchItemsResponse carries ranked search hits.
type SearchItemsResponse struct {
	Query string             `json:"query"`
	Hits  []services.ItemHit `json:"hits"`
}

// ListCommentsResponse wraps a page of comments.
type ListCommentsResponse struct {
	Comments   []domain.Comment `json:"comments"`
	Pagination Pagination       `json:"pagination"`
}

// LikeResponse reports the like state after a toggle.
type LikeResponse struct {
	Liked bool `json:"liked"`
}

// CreateItem godoc
// @ID          createItem
// @Summary     List a new item in the caller's RT
// @Tags        Items
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.CreateItemRequest  true  "Item"
// @Success     201   {object}  domain.Item
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403   {object}  handlers.ErrorResponse  "Not a member of an RT"
// @Router      /items [post]
func (h *Handlers) CreateItem(c *gin.Context) {
	var req CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid item payload")
		return
	}
	it, err := h.items.Create(c.Request.Context(), userID(c), services.CreateItemInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Condition:   req.Condition,
		Quantity:    req.Quantity,
		Unit:        req.Unit,
		PhotoPath:   req.PhotoPath,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, it)
}

// ListItems godoc
// @ID          listItems
// @Summary     List items in the caller's RT (paginated)
// @Description Supports a weak ETag via If-None-Match and may return 304.
// @Tags        Items
// @Produce     json
// @Security    BearerAuth
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       status         query   string  false  "available|requested|reserved|collected"
// @Param       category       query   string  false  "Category"
// @Param       donor          query   string  false  "Donor profile ID"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListItemsResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad filter"
// @Failure     403  {object}  handlers.ErrorResponse  "Not a member of an RT"
// @Router      /items [get]
func (h *Handlers) ListItems(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort): RT item count and newest update, plus the query.
	if count, maxTS, err := h.items.Stats(ctx, uid); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		q := fnv.New32a()
		_, _ = q.Write([]byte(c.Request.URL.RawQuery))
		etag := fmt.Sprintf(`W/"items:%d:%d:%x"`, count, ts, q.Sum32())
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	f := repo.ItemFilter{
		Status:   domain.ItemStatus(strings.TrimSpace(c.Query("status"))),
		Category: c.Query("category"),
		DonorID:  strings.TrimSpace(c.Query("donor")),
	}
	items, total, err := h.items.List(ctx, uid, f, page, pageSize)
	if err != nil {
		c.Writer.Header().Del("ETag")
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListItemsResponse{Items: items, Pagination: newPagination(page, pageSize, total)})
}

// SearchItems godoc
// @ID          searchItems
// @Summary     Keyword search over open listings in the caller's RT
// @Tags        Items
// @Produce     json
// @Security    BearerAuth
// @Param       q    query     string  true   "Query"
// @Param       k    query     int     false  "Max hits"  minimum(1) maximum(50) default(10)
// @Success     200  {object}  handlers.SearchItemsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing query"
// @Router      /items/search [get]
func (h *Handlers) SearchItems(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "query parameter q is required")
		return
	}
	k := utils.IntInRange(c.Query("k"), 10, 1, 50)
	hits, err := h.items.Search(c.Request.Context(), userID(c), q, k)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, SearchItemsResponse{Query: q, Hits: hits})
}

// GetItem godoc
// @ID          getItem
// @Summary     Get an item
// @Tags        Items
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Item ID"  format(uuid)
// @Success     200  {object}  domain.Item
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /items/{id} [get]
func (h *Handlers) GetItem(c *gin.Context) {
	it, err := h.items.Get(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, it)
}

// UpdateItem godoc
// @ID          updateItem
// @Summary     Update an item (donor or RT admin)
// @Tags        Items
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string                        true  "Item ID"  format(uuid)
// @Param       body  body      handlers.UpdateItemRequest    true  "Fields to change"
// @Success     200   {object}  domain.Item
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403   {object}  handlers.ErrorResponse  "Forbidden"
// @Failure     404   {object}  handlers.ErrorResponse  "Not found"
// @Router      /items/{id} [patch]
func (h *Handlers) UpdateItem(c *gin.Context) {
	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid item payload")
		return
	}
	it, err := h.items.Update(c.Request.Context(), userID(c), c.Param("id"), services.UpdateItemInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Condition:   req.Condition,
		Quantity:    req.Quantity,
		Unit:        req.Unit,
		PhotoPath:   req.PhotoPath,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, it)
}

// DeleteItem godoc
// @ID          deleteItem
// @Summary     Delete an item (donor or RT admin)
// @Tags        Items
// @Security    BearerAuth
// @Param       id   path      string  true  "Item ID"  format(uuid)
// @Success     204  {string}  string "No Content"
// @Failure     403  {object}  handlers.ErrorResponse  "Forbidden"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /items/{id} [delete]
func (h *Handlers) DeleteItem(c *gin.Context) {
	if err := h.items.Delete(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// ItemStats godoc
// @ID          itemStats
// @Summary     Like and comment counts for an item
// @Tags        Items
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Item ID"  format(uuid)
// @Success     200  {object}  services.ItemStats
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /items/{id}/stats [get]
func (h *Handlers) ItemStats(c *gin.Context) {
	st, err := h.social.Stats(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, st)
}

// ToggleLike godoc
// @ID          toggleLike
// @Summary     Like or unlike an item
// @Tags        Items
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Item ID"  format(uuid)
// @Success     200  {object}  handlers.LikeResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /items/{id}/like [post]
func (h *Handlers) ToggleLike(c *gin.Context) {
	liked, err := h.social.ToggleLike(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, LikeResponse{Liked: liked})
}

// ListComments godoc
// @ID          listComments
// @Summary     List comments on an item (oldest first)
// @Tags        Items
// @Produce     json
// @Security    BearerAuth
// @Param       id         path   string  true   "Item ID"  format(uuid)
// @Param       page       query  int     false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListCommentsResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /items/{id}/comments [get]
func (h *Handlers) ListComments(c *gin.Context) {
	page, pageSize := clampPagination(c)
	cs, total, err := h.social.ListComments(c.Request.Context(), userID(c), c.Param("id"), page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListCommentsResponse{Comments: cs, Pagination: newPagination(page, pageSize, total)})
}

// AddComment godoc
// @ID          addComment
// @Summary     Comment on an item
// @Tags        Items
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string                       true  "Item ID"  format(uuid)
// @Param       body  body      handlers.AddCommentRequest   true  "Comment"
// @Success     201   {object}  domain.Comment
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404   {object}  handlers.ErrorResponse  "Not found"
// @Router      /items/{id}/comments [post]
func (h *Handlers) AddComment(c *gin.Context) {
	var req AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content is required")
		return
	}
	cm, err := h.social.AddComment(c.Request.Context(), userID(c), c.Param("id"), req.Content)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, cm)
}

// DeleteComment godoc
// @ID          deleteComment
// @Summary     Delete one of the caller's comments
// @Tags        Items
// @Security    BearerAuth
// @Param       id   path      string  true  "Comment ID"  format(uuid)
// @Success     204  {string}  string "No Content"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the author"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /comments/{id} [delete]
func (h *Handlers) DeleteComment(c *gin.Context) {
	if err := h.social.DeleteComment(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}
