// Package services – ItemService
//
// ItemService manages the listings a donor offers to their RT. Titles are
// whitespace-normalised and clipped, categories are case-folded so filters
// match regardless of how they were typed, and only the donor or an RT admin
// may change or remove a listing. Lifecycle status is owned by the request
// and pickup flows and cannot be patched here.
package services

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/rtshare/exchange-backend/internal/domain"
	"github.com/rtshare/exchange-backend/internal/repo"
	"github.com/rtshare/exchange-backend/internal/search"
)

// ItemService provides listing operations scoped to the caller's RT.
type ItemService struct {
	DB *gorm.DB

	// TitleMaxLen caps stored titles by rune length.
	TitleMaxLen int
	// Locale drives category case folding.
	Locale language.Tag
	// SearchWindow is how many recent open listings Search ranks.
	SearchWindow int
}

// NewItemService constructs an ItemService with defaults.
func NewItemService(db *gorm.DB) *ItemService {
	return &ItemService{
		DB:           db,
		TitleMaxLen:  200,
		Locale:       language.Indonesian,
		SearchWindow: 500,
	}
}

// CreateItemInput carries the donor-supplied fields of a new listing.
type CreateItemInput struct {
	Title       string
	Description string
	Category    string
	Condition   domain.ItemCondition
	Quantity    int
	Unit        string
	PhotoPath   string
}

// UpdateItemInput is a partial update. Nil fields are left unchanged.
type UpdateItemInput struct {
	Title       *string
	Description *string
	Category    *string
	Condition   *domain.ItemCondition
	Quantity    *int
	Unit        *string
	PhotoPath   *string
}

// ItemHit is one search result.
type ItemHit struct {
	Item  domain.Item `json:"item"`
	Score float64     `json:"score"`
}

// Create lists a new item in the caller's RT.
func (s *ItemService) Create(ctx context.Context, userID string, in CreateItemInput) (*domain.Item, error) {
	m, err := membership(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}

	title := s.clip(normalizeTitle(in.Title))
	if title == "" {
		return nil, ErrInvalidItem
	}
	cond := in.Condition
	if cond == "" {
		cond = domain.ConditionGood
	}
	if !cond.Valid() {
		return nil, ErrInvalidItem
	}
	qty := in.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		return nil, ErrInvalidItem
	}
	unit := strings.TrimSpace(in.Unit)
	if unit == "" {
		unit = "pcs"
	}

	it := &domain.Item{
		DonorID:     userID,
		RTID:        m.RTID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Category:    s.category(in.Category),
		Condition:   cond,
		Quantity:    qty,
		Unit:        unit,
		PhotoPath:   strings.TrimSpace(in.PhotoPath),
	}
	if err := repo.CreateItem(ctx, s.DB, it); err != nil {
		return nil, err
	}
	return it, nil
}

// List returns a page of items in the caller's RT and the total count.
func (s *ItemService) List(ctx context.Context, userID string, f repo.ItemFilter, page, pageSize int) ([]domain.Item, int64, error) {
	m, err := membership(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, ErrInvalidItem
	}
	if f.Category != "" {
		f.Category = s.category(f.Category)
	}
	_, size, offset := pageBounds(page, pageSize)

	total, err := repo.CountItems(ctx, s.DB, m.RTID, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Item{}, 0, nil
	}
	items, err := repo.ListItemsPage(ctx, s.DB, m.RTID, f, offset, size)
	return items, total, err
}

// Get returns an item visible to the caller.
func (s *ItemService) Get(ctx context.Context, userID, itemID string) (*domain.Item, error) {
	return visibleItem(ctx, s.DB, userID, itemID)
}

// Update applies in to the item. Only the donor or an RT admin may do so.
func (s *ItemService) Update(ctx context.Context, userID, itemID string, in UpdateItemInput) (*domain.Item, error) {
	fields := map[string]any{}
	if in.Title != nil {
		t := s.clip(normalizeTitle(*in.Title))
		if t == "" {
			return nil, ErrInvalidItem
		}
		fields["title"] = t
	}
	if in.Description != nil {
		fields["description"] = strings.TrimSpace(*in.Description)
	}
	if in.Category != nil {
		fields["category"] = s.category(*in.Category)
	}
	if in.Condition != nil {
		if !in.Condition.Valid() {
			return nil, ErrInvalidItem
		}
		fields["condition"] = *in.Condition
	}
	if in.Quantity != nil {
		if *in.Quantity <= 0 {
			return nil, ErrInvalidItem
		}
		fields["quantity"] = *in.Quantity
	}
	if in.Unit != nil {
		u := strings.TrimSpace(*in.Unit)
		if u == "" {
			return nil, ErrInvalidItem
		}
		fields["unit"] = u
	}
	if in.PhotoPath != nil {
		fields["photo_path"] = strings.TrimSpace(*in.PhotoPath)
	}

	var out *domain.Item
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		it, err := s.managed(ctx, tx, userID, itemID)
		if err != nil {
			return err
		}
		if len(fields) > 0 {
			if err := repo.UpdateItem(ctx, tx, it.ID, fields); err != nil {
				return err
			}
		}
		out, err = repo.GetItem(ctx, tx, it.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the item with its requests, comments and likes.
func (s *ItemService) Delete(ctx context.Context, userID, itemID string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		it, err := s.managed(ctx, tx, userID, itemID)
		if err != nil {
			return err
		}
		if err := repo.DeleteItem(ctx, tx, it.ID); err != nil {
			if isNotFound(err) {
				return ErrItemNotFound
			}
			return err
		}
		return nil
	})
}

// Search ranks the caller's RT open listings against query by keyword
// overlap with title, category and description.
func (s *ItemService) Search(ctx context.Context, userID, query string, k int) ([]ItemHit, error) {
	m, err := membership(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	items, err := repo.ListOpenItems(ctx, s.DB, m.RTID, s.SearchWindow)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Item, len(items))
	docs := make([]search.Document, 0, len(items))
	for _, it := range items {
		byID[it.ID] = it
		docs = append(docs, search.Document{
			ID:   it.ID,
			Text: it.Title + " " + it.Category + " " + it.Description,
		})
	}

	results := search.NewIndex(docs,
		search.WithStopwords(search.CommonStopwords),
		search.WithPrefixMatch(3),
	).TopK(query, k)
	hits := make([]ItemHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, ItemHit{Item: byID[r.ID], Score: r.Score})
	}
	return hits, nil
}

// Stats returns the item count and latest update time of the caller's RT,
// used to derive listing ETags.
func (s *ItemService) Stats(ctx context.Context, userID string) (int64, *time.Time, error) {
	m, err := membership(ctx, s.DB, userID)
	if err != nil {
		return 0, nil, err
	}
	return repo.ItemsStats(ctx, s.DB, m.RTID)
}

// managed loads an item the caller may change. Outsiders get
// ErrItemNotFound, RT members without rights get ErrForbidden.
func (s *ItemService) managed(ctx context.Context, tx *gorm.DB, userID, itemID string) (*domain.Item, error) {
	it, err := visibleItem(ctx, tx, userID, itemID)
	if err != nil {
		return nil, err
	}
	ok, err := canManageItem(ctx, tx, userID, it)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	return it, nil
}

func (s *ItemService) category(c string) string {
	c = normalizeTitle(c)
	if c == "" {
		return "other"
	}
	return cases.Lower(s.Locale).String(c)
}

func (s *ItemService) clip(title string) string {
	if s.TitleMaxLen > 0 && utf8.RuneCountInString(title) > s.TitleMaxLen {
		return string([]rune(title)[:s.TitleMaxLen])
	}
	return title
}

// normalizeTitle trims whitespace and collapses runs of it to one space.
func normalizeTitle(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

var whitespaceRE = regexp.MustCompile(`\s+`)
