package orders

import (
	"context"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/bookhaven/bookorders/internal/db"
	"go.uber.org/zap"
)

// Price thresholds in cents.
const (
	priceMaxCents          = 1_000_000 // $10,000
	technicalMinPriceCents = 2_000     // $20
	childrenMaxPriceCents  = 5_000     // $50
	expensivePriceCents    = 10_000    // $100
	highValuePriceCents    = 50_000    // $500

	expensiveMaxStock = 20
	highValueMaxStock = 10

	stockMax        = 100_000
	dailyOrderLimit = 500
	minPublishYear  = 1400
)

var (
	inappropriateWords     = []string{"badword1", "badword2"}
	childrenRestrictedWord = []string{"violence", "drugs"}
	technicalKeywords      = []string{"software", "engineering", "programming", "data", "ai", "network", "cybersecurity", "cloud"}

	authorNameRx = regexp.MustCompile(`^[a-zA-Z\s\-'.]+$`)
	isbnRx       = regexp.MustCompile(`^\d{10}(\d{3})?$`)

	imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}
)

// Lookup is the read-only view of the order store that the store-backed
// rules need. These lookups are the only validation steps that perform I/O.
type Lookup interface {
	ISBNExists(ctx context.Context, isbn string) (bool, error)
	TitleAuthorExists(ctx context.Context, title, author string) (bool, error)
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
}

// Validator evaluates the creation rule set. Rules are held as an explicit
// ordered list; every rule runs and every violation is collected, so the
// caller sees all failures at once rather than just the first.
type Validator struct {
	lookup Lookup
	log    *zap.Logger
}

// NewValidator creates a validator backed by the given lookup.
func NewValidator(lookup Lookup, log *zap.Logger) *Validator {
	return &Validator{lookup: lookup, log: log}
}

type ruleCtx struct {
	ctx    context.Context
	req    *CreateOrderRequest
	now    time.Time
	lookup Lookup
	log    *zap.Logger
	errs   map[string]string
	err    error
}

// fail records the first violation per field.
func (rc *ruleCtx) fail(field, message string) {
	if _, exists := rc.errs[field]; !exists {
		rc.errs[field] = message
	}
}

type rule struct {
	name        string
	storeBacked bool
	check       func(*ruleCtx)
}

// rules is the full ordered rule list. Field rules first, store-backed
// uniqueness and business rules after, category-conditional rules last.
var rules = []rule{
	{name: "title", check: checkTitle},
	{name: "author", check: checkAuthor},
	{name: "isbn", check: checkISBN},
	{name: "category", check: checkCategory},
	{name: "price", check: checkPrice},
	{name: "published_date", check: checkPublishedDate},
	{name: "stock_quantity", check: checkStock},
	{name: "cover_image_url", check: checkCoverImageURL},
	{name: "title_author_unique", storeBacked: true, check: checkTitleAuthorUnique},
	{name: "isbn_unique", storeBacked: true, check: checkISBNUnique},
	{name: "daily_limit", storeBacked: true, check: checkDailyLimit},
	{name: "technical_rules", check: checkTechnicalRules},
	{name: "children_rules", check: checkChildrenRules},
	{name: "fiction_rules", check: checkFictionRules},
	{name: "expensive_stock", check: checkExpensiveStock},
}

// Validate runs every rule against req and returns the collected violations,
// keyed by field. A nil map means the request is valid. The returned error is
// non-nil only when a store lookup itself failed.
func (v *Validator) Validate(ctx context.Context, req *CreateOrderRequest, now time.Time) (map[string]string, error) {
	rc := &ruleCtx{ctx: ctx, req: req, now: now, lookup: v.lookup, log: v.log, errs: make(map[string]string)}
	for _, r := range rules {
		r.check(rc)
		if rc.err != nil {
			return nil, rc.err
		}
	}
	if len(rc.errs) == 0 {
		return nil, nil
	}
	v.log.Info("Order validation failed",
		zap.String("title", req.Title),
		zap.String("isbn", req.ISBN),
		zap.Int("violations", len(rc.errs)),
	)
	return rc.errs, nil
}

// ValidateFields runs only the store-free rules. Used for updates, where the
// uniqueness and daily-limit checks do not apply to the record itself.
func (v *Validator) ValidateFields(req *CreateOrderRequest, now time.Time) map[string]string {
	rc := &ruleCtx{req: req, now: now, log: v.log, errs: make(map[string]string)}
	for _, r := range rules {
		if r.storeBacked {
			continue
		}
		r.check(rc)
	}
	if len(rc.errs) == 0 {
		return nil
	}
	return rc.errs
}

func containsAnyFold(s string, words []string) bool {
	lower := strings.ToLower(s)
	for _, w := range words {
		if strings.Contains(lower, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

func checkTitle(rc *ruleCtx) {
	title := rc.req.Title
	switch {
	case strings.TrimSpace(title) == "":
		rc.fail("title", "Title cannot be empty")
	case len([]rune(title)) > 200:
		rc.fail("title", "Title must be between 1 and 200 characters")
	case containsAnyFold(title, inappropriateWords):
		rc.fail("title", "Title contains inappropriate words")
	}
}

func checkAuthor(rc *ruleCtx) {
	author := rc.req.Author
	n := len([]rune(author))
	switch {
	case strings.TrimSpace(author) == "":
		rc.fail("author", "Author cannot be empty")
	case n < 2 || n > 100:
		rc.fail("author", "Author must be between 2 and 100 characters")
	case !authorNameRx.MatchString(author):
		rc.fail("author", "Author contains invalid characters")
	}
}

func checkISBN(rc *ruleCtx) {
	isbn := rc.req.ISBN
	if strings.TrimSpace(isbn) == "" {
		rc.fail("isbn", "ISBN cannot be empty")
		return
	}
	if !isbnRx.MatchString(NormalizeISBN(isbn)) {
		rc.fail("isbn", "ISBN must be 10 or 13 digits (hyphens and spaces are ignored)")
	}
}

func checkCategory(rc *ruleCtx) {
	if !rc.req.Category.Valid() {
		rc.fail("category", "Category must be one of Fiction, NonFiction, Technical, Children")
	}
}

func checkPrice(rc *ruleCtx) {
	switch {
	case rc.req.Price <= 0:
		rc.fail("price", "Price must be greater than 0")
	case rc.req.Price >= priceMaxCents:
		rc.fail("price", "Price cannot exceed $10,000")
	}
}

func checkPublishedDate(rc *ruleCtx) {
	date := rc.req.PublishedDate
	switch {
	case date.After(rc.now):
		rc.fail("published_date", "Published date cannot be in the future")
	case date.Year() < minPublishYear:
		rc.fail("published_date", "Published date cannot be before 1400")
	}
}

func checkStock(rc *ruleCtx) {
	switch {
	case rc.req.StockQuantity < 0:
		rc.fail("stock_quantity", "Stock cannot be negative")
	case rc.req.StockQuantity > stockMax:
		rc.fail("stock_quantity", "Stock quantity is too large")
	}
}

func checkCoverImageURL(rc *ruleCtx) {
	raw := rc.req.CoverImageURL
	if strings.TrimSpace(raw) == "" {
		return
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		rc.fail("cover_image_url", "CoverImageUrl must be a valid HTTP/HTTPS image URL")
		return
	}
	ext := strings.ToLower(path.Ext(u.Path))
	for _, allowed := range imageExtensions {
		if ext == allowed {
			return
		}
	}
	rc.fail("cover_image_url", "CoverImageUrl must be a valid HTTP/HTTPS image URL")
}

func checkTitleAuthorUnique(rc *ruleCtx) {
	exists, err := rc.lookup.TitleAuthorExists(rc.ctx, rc.req.Title, rc.req.Author)
	if err != nil {
		rc.err = err
		return
	}
	rc.log.Debug("Title uniqueness check",
		zap.String("title", rc.req.Title),
		zap.String("author", rc.req.Author),
		zap.Bool("exists", exists),
	)
	if exists {
		rc.fail("title", "Title already exists for this author")
	}
}

func checkISBNUnique(rc *ruleCtx) {
	exists, err := rc.lookup.ISBNExists(rc.ctx, NormalizeISBN(rc.req.ISBN))
	if err != nil {
		rc.err = err
		return
	}
	rc.log.Debug("ISBN uniqueness check",
		zap.String("isbn", rc.req.ISBN),
		zap.Bool("exists", exists),
	)
	if exists {
		rc.fail("isbn", "ISBN already exists")
	}
}

func checkDailyLimit(rc *ruleCtx) {
	dayStart := rc.now.UTC().Truncate(24 * time.Hour)
	count, err := rc.lookup.CountCreatedBetween(rc.ctx, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		rc.err = err
		return
	}
	if count >= dailyOrderLimit {
		rc.log.Warn("Daily order limit exceeded", zap.Int64("count", count))
		rc.fail("order", "Daily order limit reached")
	}
}

func checkTechnicalRules(rc *ruleCtx) {
	if rc.req.Category != db.CategoryTechnical {
		return
	}
	if rc.req.Price < technicalMinPriceCents {
		rc.fail("price", "Technical orders must have a minimum price of $20.00")
	}
	if !containsAnyFold(rc.req.Title, technicalKeywords) {
		rc.fail("title", "Technical orders must contain at least one technical keyword in the title")
	}
	if rc.req.PublishedDate.Before(rc.now.AddDate(-5, 0, 0)) {
		rc.fail("published_date", "Technical orders must be published within the last 5 years")
	}
}

func checkChildrenRules(rc *ruleCtx) {
	if rc.req.Category != db.CategoryChildren {
		return
	}
	if rc.req.Price > childrenMaxPriceCents {
		rc.fail("price", "Children's orders must not cost more than $50")
	}
	if containsAnyFold(rc.req.Title, childrenRestrictedWord) || containsAnyFold(rc.req.Title, inappropriateWords) {
		rc.fail("title", "Children's order titles must be appropriate for kids")
	}
}

func checkFictionRules(rc *ruleCtx) {
	if rc.req.Category != db.CategoryFiction {
		return
	}
	if len([]rune(rc.req.Author)) < 5 {
		rc.fail("author", "Fiction author names must have at least 5 characters")
	}
}

// checkExpensiveStock applies the layered price/stock thresholds: both
// bounds hold at their respective price levels, the higher one does not
// replace the lower.
func checkExpensiveStock(rc *ruleCtx) {
	if rc.req.Price > expensivePriceCents && rc.req.StockQuantity > expensiveMaxStock {
		rc.fail("stock_quantity", "Expensive orders (>$100) must have stock of 20 or less")
	}
	if rc.req.Price > highValuePriceCents && rc.req.StockQuantity > highValueMaxStock {
		rc.fail("stock_quantity", "High-value orders (>$500) must have stock of 10 or less")
	}
}
