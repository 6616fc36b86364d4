package datamgmt

import (
	"sort"

	"github.com/trezcool/summercamps/core"
)

// Registry holds the TableConfig of every table exposed by the admin dashboard.
type Registry struct {
	tables map[string]TableConfig
	order  []string
}

func NewRegistry(tables ...TableConfig) *Registry {
	r := &Registry{tables: make(map[string]TableConfig, len(tables))}
	for _, t := range tables {
		r.Register(t)
	}
	return r
}

func (r *Registry) Register(t TableConfig) {
	if t.PrimaryKey == "" {
		t.PrimaryKey = ColID
	}
	if _, ok := r.tables[t.Name]; !ok {
		r.order = append(r.order, t.Name)
	}
	r.tables[t.Name] = t
}

// Table returns the config of the named table, or core.ErrUnknownTable.
func (r *Registry) Table(name string) (TableConfig, error) {
	t, ok := r.tables[name]
	if !ok {
		return TableConfig{}, core.ErrUnknownTable
	}
	return t, nil
}

// Tables lists the registered tables sorted by display name.
func (r *Registry) Tables() []TableConfig {
	tables := make([]TableConfig, 0, len(r.order))
	for _, name := range r.order {
		tables = append(tables, r.tables[name])
	}
	sort.SliceStable(tables, func(i, j int) bool { return tables[i].DisplayName < tables[j].DisplayName })
	return tables
}

type colOpt func(*ColumnConfig)

func required(c *ColumnConfig)   { c.Required = true }
func readOnly(c *ColumnConfig)   { c.Editable = false }
func hidden(c *ColumnConfig)     { c.Hidden = true }
func searchable(c *ColumnConfig) { c.Searchable = true }
func unique(c *ColumnConfig)     { c.Unique = true }
func unsortable(c *ColumnConfig) { c.Sortable = false }

func enum(values ...string) colOpt {
	return func(c *ColumnConfig) {
		c.Type = TypeEnum
		c.EnumValues = values
	}
}

func references(table, displayColumn string) colOpt {
	return func(c *ColumnConfig) {
		c.ForeignKey = &ForeignKey{Table: table, Column: ColID, DisplayColumn: displayColumn}
	}
}

func column(name, displayName string, typ ColumnType, opts ...colOpt) ColumnConfig {
	c := ColumnConfig{Name: name, DisplayName: displayName, Type: typ, Editable: true, Sortable: true}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func idColumn() ColumnConfig {
	return column(ColID, "ID", TypeUUID, readOnly)
}

func withTimestamps(cols ...ColumnConfig) []ColumnConfig {
	cols = append([]ColumnConfig{idColumn()}, cols...)
	return append(cols,
		column(ColCreatedAt, "Created At", TypeDatetime, readOnly),
		column(ColUpdatedAt, "Updated At", TypeDatetime, readOnly),
	)
}

var newestFirst = core.DBOrdering{Field: ColCreatedAt}

// DefaultRegistry declares the tables of the camps marketplace.
func DefaultRegistry() *Registry {
	return NewRegistry(
		TableConfig{
			Name: "camps", DisplayName: "Camps", DefaultSort: newestFirst,
			Columns: withTimestamps(
				column("name", "Name", TypeText, required, searchable),
				column("slug", "Slug", TypeText, required, unique, searchable),
				column("organisation_id", "Organisation", TypeUUID, required, references("organisations", "name")),
				column("status", "Status", TypeText, required, enum("draft", "pending_review", "published", "archived")),
				column("category", "Category", TypeText, searchable),
				column("location", "Location", TypeText, searchable),
				column("description", "Description", TypeTextarea, searchable, unsortable),
				column("min_age", "Min Age", TypeNumber),
				column("max_age", "Max Age", TypeNumber),
				column("start_date", "Start Date", TypeDate),
				column("end_date", "End Date", TypeDate),
				column("price", "Price", TypeNumber, required),
				column("currency", "Currency", TypeText),
				column("capacity", "Capacity", TypeNumber),
				column("enrolled_count", "Enrolled", TypeNumber, readOnly),
				column("featured", "Featured", TypeBoolean),
				column("image_url", "Image URL", TypeURL, unsortable),
				column("video_url", "Video URL", TypeURL, unsortable),
				column("gallery", "Gallery", TypeJSON, hidden, unsortable),
				column("highlights", "Highlights", TypeJSON, hidden, unsortable),
				column("amenities", "Amenities", TypeJSON, hidden, unsortable),
				column("faqs", "FAQs", TypeJSON, hidden, unsortable),
				column("cancellation_policy", "Cancellation Policy", TypeTextarea, hidden, unsortable),
				column("refund_policy", "Refund Policy", TypeTextarea, hidden, unsortable),
				column("safety_info", "Safety Info", TypeTextarea, hidden, unsortable),
				column("requirements", "Requirements", TypeJSON, hidden, unsortable),
				column("what_to_bring", "What To Bring", TypeJSON, hidden, unsortable),
			),
		},
		TableConfig{
			Name: "bookings", DisplayName: "Bookings", DefaultSort: newestFirst,
			Columns: withTimestamps(
				column("camp_id", "Camp", TypeUUID, required, references("camps", "name")),
				column("parent_id", "Parent", TypeUUID, required, references("parents", "name")),
				column("child_id", "Child", TypeUUID, required, references("children", "name")),
				column("status", "Status", TypeText, required, enum("pending", "confirmed", "waitlisted", "cancelled", "completed")),
				column("payment_status", "Payment Status", TypeText, required, enum("unpaid", "deposit_paid", "paid", "refunded")),
				column("amount", "Amount", TypeNumber, required),
				column("discount_amount", "Discount", TypeNumber),
				column("discount_code_id", "Discount Code", TypeUUID, references("discount_codes", "code")),
				column("currency", "Currency", TypeText),
				column("notes", "Notes", TypeTextarea, searchable, unsortable),
			),
		},
		TableConfig{
			Name: "organisations", DisplayName: "Organisations", DefaultSort: core.DBOrdering{Field: "name", Ascending: true},
			Columns: withTimestamps(
				column("name", "Name", TypeText, required, searchable),
				column("slug", "Slug", TypeText, required, unique, searchable),
				column("email", "Email", TypeEmail, searchable),
				column("phone", "Phone", TypeText),
				column("website", "Website", TypeURL),
				column("description", "Description", TypeTextarea, unsortable),
				column("logo_url", "Logo URL", TypeURL, hidden, unsortable),
				column("status", "Status", TypeText, required, enum("pending", "active", "suspended")),
			),
		},
		TableConfig{
			Name: "profiles", DisplayName: "Profiles", DefaultSort: newestFirst,
			Columns: withTimestamps(
				column("name", "Name", TypeText, searchable),
				column("username", "Username", TypeText, unique, searchable),
				column("email", "Email", TypeEmail, unique, searchable),
				column("is_active", "Active", TypeBoolean),
				column("roles", "Roles", TypeJSON, unsortable),
				column("organisation_id", "Organisation", TypeUUID, references("organisations", "name")),
				column("last_login", "Last Login", TypeDatetime, readOnly),
			),
		},
		TableConfig{
			Name: "parents", DisplayName: "Parents", DefaultSort: newestFirst,
			Columns: withTimestamps(
				column("name", "Name", TypeText, required, searchable),
				column("email", "Email", TypeEmail, required, unique, searchable),
				column("phone", "Phone", TypeText, searchable),
				column("address", "Address", TypeTextarea, unsortable),
				column("profile_id", "Account", TypeUUID, references("profiles", "email")),
			),
		},
		TableConfig{
			Name: "children", DisplayName: "Children", DefaultSort: newestFirst,
			Columns: withTimestamps(
				column("name", "Name", TypeText, required, searchable),
				column("parent_id", "Parent", TypeUUID, required, references("parents", "name")),
				column("date_of_birth", "Date Of Birth", TypeDate),
				column("medical_notes", "Medical Notes", TypeTextarea, unsortable),
				column("dietary_requirements", "Dietary Requirements", TypeTextarea, unsortable),
			),
		},
		TableConfig{
			Name: "feedback", DisplayName: "Feedback", DefaultSort: newestFirst,
			Columns: withTimestamps(
				column("camp_id", "Camp", TypeUUID, required, references("camps", "name")),
				column("parent_id", "Parent", TypeUUID, references("parents", "name")),
				column("rating", "Rating", TypeNumber, required),
				column("comment", "Comment", TypeTextarea, searchable, unsortable),
				column("status", "Status", TypeText, required, enum("pending", "approved", "rejected")),
			),
		},
		TableConfig{
			Name: "enquiries", DisplayName: "Enquiries", DefaultSort: newestFirst,
			Columns: withTimestamps(
				column("name", "Name", TypeText, required, searchable),
				column("email", "Email", TypeEmail, required, searchable),
				column("phone", "Phone", TypeText),
				column("camp_id", "Camp", TypeUUID, references("camps", "name")),
				column("message", "Message", TypeTextarea, required, searchable, unsortable),
				column("status", "Status", TypeText, required, enum("new", "responded", "closed")),
				column("response", "Response", TypeTextarea, unsortable),
				column("responded_at", "Responded At", TypeDatetime, readOnly),
			),
		},
		TableConfig{
			Name: "communications", DisplayName: "Communications", DefaultSort: newestFirst, ReadOnly: true,
			Columns: []ColumnConfig{
				idColumn(),
				column("recipient_email", "Recipient", TypeEmail, searchable),
				column("subject", "Subject", TypeText, searchable),
				column("body", "Body", TypeTextarea, hidden, unsortable),
				column("channel", "Channel", TypeText, enum("email", "sms")),
				column("status", "Status", TypeText, enum("queued", "sent", "failed")),
				column("enquiry_id", "Enquiry", TypeUUID, references("enquiries", "email")),
				column("booking_id", "Booking", TypeUUID, references("bookings", "id")),
				column("sent_at", "Sent At", TypeDatetime),
				column(ColCreatedAt, "Created At", TypeDatetime, readOnly),
			},
		},
		TableConfig{
			Name: "discount_codes", DisplayName: "Discount Codes", DefaultSort: newestFirst,
			Columns: withTimestamps(
				column("code", "Code", TypeText, required, unique, searchable),
				column("description", "Description", TypeText, searchable),
				column("discount_type", "Type", TypeText, required, enum("percentage", "fixed")),
				column("value", "Value", TypeNumber, required),
				column("camp_id", "Camp", TypeUUID, references("camps", "name")),
				column("valid_from", "Valid From", TypeDate),
				column("valid_until", "Valid Until", TypeDate),
				column("max_uses", "Max Uses", TypeNumber),
				column("used_count", "Used", TypeNumber, readOnly),
				column("active", "Active", TypeBoolean),
			),
		},
		TableConfig{
			Name: "incidents", DisplayName: "Incidents", DefaultSort: newestFirst,
			Columns: withTimestamps(
				column("title", "Title", TypeText, required, searchable),
				column("camp_id", "Camp", TypeUUID, required, references("camps", "name")),
				column("child_id", "Child", TypeUUID, references("children", "name")),
				column("description", "Description", TypeTextarea, searchable, unsortable),
				column("severity", "Severity", TypeText, required, enum("low", "medium", "high", "critical")),
				column("status", "Status", TypeText, required, enum("open", "resolved")),
				column("occurred_at", "Occurred At", TypeDatetime),
				column("resolved_at", "Resolved At", TypeDatetime),
			),
		},
		TableConfig{
			Name: "payments", DisplayName: "Payments", DefaultSort: newestFirst,
			Columns: withTimestamps(
				column("booking_id", "Booking", TypeUUID, required, references("bookings", "id")),
				column("amount", "Amount", TypeNumber, required),
				column("currency", "Currency", TypeText),
				column("method", "Method", TypeText, required, enum("card", "bank_transfer", "cash")),
				column("status", "Status", TypeText, required, enum("pending", "succeeded", "failed", "refunded")),
				column("reference", "Reference", TypeText, searchable),
				column("paid_at", "Paid At", TypeDatetime),
			),
		},
		TableConfig{
			Name: "blog_posts", DisplayName: "Blog Posts", DefaultSort: newestFirst,
			Columns: withTimestamps(
				column("title", "Title", TypeText, required, searchable),
				column("slug", "Slug", TypeText, required, unique, searchable),
				column("excerpt", "Excerpt", TypeTextarea, unsortable),
				column("content", "Content", TypeTextarea, hidden, searchable, unsortable),
				column("cover_image_url", "Cover Image", TypeURL, hidden, unsortable),
				column("author_id", "Author", TypeUUID, references("blog_authors", "name")),
				column("category_id", "Category", TypeUUID, references("blog_categories", "name")),
				column("status", "Status", TypeText, required, enum("draft", "published")),
				column("published_at", "Published At", TypeDatetime),
				column("view_count", "Views", TypeNumber, readOnly),
				column("meta_title", "Meta Title", TypeText, hidden),
				column("meta_description", "Meta Description", TypeText, hidden),
			),
		},
		TableConfig{
			Name: "blog_authors", DisplayName: "Blog Authors", DefaultSort: core.DBOrdering{Field: "name", Ascending: true},
			Columns: withTimestamps(
				column("name", "Name", TypeText, required, searchable),
				column("slug", "Slug", TypeText, required, unique, searchable),
				column("bio", "Bio", TypeTextarea, unsortable),
				column("avatar_url", "Avatar URL", TypeURL, unsortable),
			),
		},
		TableConfig{
			Name: "blog_categories", DisplayName: "Blog Categories", DefaultSort: core.DBOrdering{Field: "name", Ascending: true},
			Columns: withTimestamps(
				column("name", "Name", TypeText, required, searchable),
				column("slug", "Slug", TypeText, required, unique, searchable),
				column("description", "Description", TypeTextarea, unsortable),
			),
		},
		TableConfig{
			Name: "blog_tags", DisplayName: "Blog Tags", DefaultSort: core.DBOrdering{Field: "name", Ascending: true},
			Columns: []ColumnConfig{
				idColumn(),
				column("name", "Name", TypeText, required, searchable),
				column("slug", "Slug", TypeText, required, unique, searchable),
				column(ColCreatedAt, "Created At", TypeDatetime, readOnly),
			},
		},
		TableConfig{
			Name: "blog_post_tags", DisplayName: "Blog Post Tags", DefaultSort: core.DBOrdering{Field: "post_id", Ascending: true},
			Columns: []ColumnConfig{
				idColumn(),
				column("post_id", "Post", TypeUUID, required, references("blog_posts", "title")),
				column("tag_id", "Tag", TypeUUID, required, references("blog_tags", "name")),
			},
		},
		TableConfig{
			Name: "programmatic_pages", DisplayName: "Landing Pages", DefaultSort: core.DBOrdering{Field: "slug", Ascending: true},
			Columns: withTimestamps(
				column("slug", "Slug", TypeText, required, unique, searchable),
				column("page_type", "Page Type", TypeText, required, enum("location", "category", "age", "location_category")),
				column("title", "Title", TypeText, required, searchable),
				column("h1", "H1", TypeText),
				column("meta_description", "Meta Description", TypeText, unsortable),
				column("intro", "Intro", TypeTextarea, hidden, unsortable),
				column("location", "Location", TypeText, searchable),
				column("category", "Category", TypeText, searchable),
				column("min_age", "Min Age", TypeNumber),
				column("max_age", "Max Age", TypeNumber),
				column("published", "Published", TypeBoolean),
			),
		},
	)
}
