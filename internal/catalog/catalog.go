// Package catalog loads the read-only list of media items from a CSV file.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	domainerrors "github.com/shelfmark/shelfmark/internal/errors"
)

// Item is one catalog row. Optional numeric columns are nil when empty.
type Item struct {
	URL            string   `json:"url"`
	SubjectID      int64    `json:"subject_id"`
	Title          string   `json:"title"`
	ImageURL       string   `json:"img_url,omitempty"`
	Year           int      `json:"year"`
	AltTitle       string   `json:"supp_title,omitempty"`
	AltYear        *float64 `json:"year_supp,omitempty"`
	Collections    *float64 `json:"collections,omitempty"`
	WatchedCount   *float64 `json:"watched,omitempty"`
	CompletionRate string   `json:"completion_rate,omitempty"`
	Recommend      *float64 `json:"recommend,omitempty"`
	StdDev         *float64 `json:"std_dev,omitempty"`
	RatingCount    *float64 `json:"rating_count,omitempty"`
	AvgRating      *float64 `json:"avg_rating,omitempty"`
	HasSupp        bool     `json:"has_supp"`
	InfoboxRaw     string   `json:"infobox_raw,omitempty"`
	Tags           string   `json:"tags,omitempty"`
	CharacterCount *float64 `json:"character_count,omitempty"`
	VACount        *float64 `json:"va_count,omitempty"`
	AllCharacters  string   `json:"all_characters,omitempty"`
	AllVAs         string   `json:"all_vas,omitempty"`
	CharactersJSON string   `json:"characters_json,omitempty"`
}

// TagList returns the item's tags split into individual values.
func (it Item) TagList() []string {
	return ParseTags(it.Tags)
}

// Catalog is an immutable, in-memory collection of items. It is safe for
// concurrent readers.
type Catalog struct {
	items []Item
	byID  map[int64]int
}

// Column names as they appear in the dataset header.
const (
	colURL            = "url"
	colSubjectID      = "subject_id"
	colTitle          = "title"
	colImageURL       = "img_url"
	colYear           = "year"
	colAltTitle       = "supp_title"
	colAltYear        = "year_supp"
	colCollections    = "收藏"
	colWatched        = "看过"
	colCompletionRate = "完成率"
	colRecommend      = "力荐"
	colStdDev         = "标准差"
	colRatingCount    = "评分数"
	colAvgRating      = "平均分"
	colHasSupp        = "has_supp"
	colInfoboxRaw     = "infobox_raw"
	colTags           = "tags"
	colCharacterCount = "character_count"
	colVACount        = "va_count"
	colAllCharacters  = "all_characters"
	colAllVAs         = "all_vas"
	colCharactersJSON = "characters_json"
)

var requiredColumns = []string{colSubjectID, colTitle, colYear, colHasSupp}

// Load reads the catalog file at path. Any malformed row fails the whole
// load; there is no partial catalog.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path comes from config
	if err != nil {
		return nil, domainerrors.IO("open", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	cat, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog %s: %w", path, err)
	}
	return cat, nil
}

// Parse reads a catalog from r.
func Parse(r io.Reader) (*Catalog, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, domainerrors.Validation("catalog is empty")
	}
	if err != nil {
		return nil, domainerrors.IO("read", "catalog header", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, domainerrors.Validationf("catalog is missing required column %q", name)
		}
	}

	cat := &Catalog{byID: make(map[int64]int)}
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, domainerrors.Validationf("malformed catalog row: %v", err)
		}
		line, _ := reader.FieldPos(0)

		item, err := parseItem(row{cols: cols, fields: rec})
		if err != nil {
			return nil, domainerrors.Validationf("line %d: %v", line, err)
		}
		if prev, dup := cat.byID[item.SubjectID]; dup {
			return nil, domainerrors.Validationf("line %d: duplicate subject_id %d (first seen as %q)", line, item.SubjectID, cat.items[prev].Title)
		}
		cat.byID[item.SubjectID] = len(cat.items)
		cat.items = append(cat.items, item)
	}
	return cat, nil
}

type row struct {
	cols   map[string]int
	fields []string
}

func (r row) get(name string) string {
	i, ok := r.cols[name]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

func (r row) optFloat(name string) (*float64, error) {
	s := r.get(name)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid number %q", name, s)
	}
	return &v, nil
}

func (r row) integer(name string) (int64, error) {
	s := r.get(name)
	if s == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	// -2^63 converts exactly; 2^63 and above overflow int64.
	if err != nil || f != math.Trunc(f) || f < -(1<<63) || f >= 1<<63 {
		return 0, fmt.Errorf("%s: invalid integer %q", name, s)
	}
	return int64(f), nil
}

// ParseBool accepts exactly True, true, TRUE, False, false or FALSE.
func ParseBool(s string) (bool, error) {
	switch s {
	case "True", "true", "TRUE":
		return true, nil
	case "False", "false", "FALSE":
		return false, nil
	default:
		return false, fmt.Errorf("expected True/False, got %q", s)
	}
}

func parseItem(r row) (Item, error) {
	var it Item
	var err error

	if it.SubjectID, err = r.integer(colSubjectID); err != nil {
		return Item{}, err
	}
	year, err := r.integer(colYear)
	if err != nil {
		return Item{}, err
	}
	it.Year = int(year)

	if it.HasSupp, err = ParseBool(r.get(colHasSupp)); err != nil {
		return Item{}, fmt.Errorf("%s: %w", colHasSupp, err)
	}

	it.URL = r.get(colURL)
	it.Title = r.get(colTitle)
	it.ImageURL = r.get(colImageURL)
	it.AltTitle = r.get(colAltTitle)
	it.CompletionRate = r.get(colCompletionRate)
	it.InfoboxRaw = r.get(colInfoboxRaw)
	it.Tags = r.get(colTags)
	it.AllCharacters = r.get(colAllCharacters)
	it.AllVAs = r.get(colAllVAs)
	it.CharactersJSON = r.get(colCharactersJSON)

	floats := []struct {
		name string
		dst  **float64
	}{
		{colAltYear, &it.AltYear},
		{colCollections, &it.Collections},
		{colWatched, &it.WatchedCount},
		{colRecommend, &it.Recommend},
		{colStdDev, &it.StdDev},
		{colRatingCount, &it.RatingCount},
		{colAvgRating, &it.AvgRating},
		{colCharacterCount, &it.CharacterCount},
		{colVACount, &it.VACount},
	}
	for _, f := range floats {
		if *f.dst, err = r.optFloat(f.name); err != nil {
			return Item{}, err
		}
	}

	return it, nil
}

// Len returns the number of items.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

// List returns a copy of every item in file order.
func (c *Catalog) List() []Item {
	if c == nil {
		return nil
	}
	return slices.Clone(c.items)
}

// Get returns the item with the given subject id.
func (c *Catalog) Get(subjectID int64) (Item, bool) {
	if c == nil {
		return Item{}, false
	}
	i, ok := c.byID[subjectID]
	if !ok {
		return Item{}, false
	}
	return c.items[i], true
}

// ParseTags splits a tag string on ',', ';' and '、', dropping empty values.
func ParseTags(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '、'
	})
	tags := make([]string, 0, len(fields))
	for _, f := range fields {
		if t := strings.TrimSpace(f); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// UniqueTags returns every distinct tag in the catalog, sorted.
func (c *Catalog) UniqueTags() []string {
	if c == nil {
		return nil
	}
	seen := make(map[string]struct{})
	for _, it := range c.items {
		for _, t := range it.TagList() {
			seen[t] = struct{}{}
		}
	}
	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	slices.Sort(tags)
	return tags
}
