package contract

// Scheme is the URI scheme of every resource address.
const Scheme = "content"

// DefaultAuthority is the authority used when none is configured.
const DefaultAuthority = "la.il.sample"

// Collection path segments.
const (
	PathImages  = "images"
	PathHistory = "history"
)

// Table names.
const (
	TableImages  = "images"
	TableHistory = "history"
)

// RowIDColumn is the storage-assigned integer key present on every table.
const RowIDColumn = "_id"

// Image columns. Only ImageIDColumn is interpreted by the mediator; the rest
// are payload owned by storage.
const (
	ImageIDColumn     = "image_id"
	ImageTitle        = "title"
	ImageURL          = "url"
	ImageThumbnailURL = "thumbnail_url"
	ImageWidth        = "width"
	ImageHeight       = "height"
	ImageUpdatedAt    = "updated_at"
)

// History columns.
const (
	HistoryImageID  = "image_id"
	HistoryQuery    = "query"
	HistoryViewedAt = "viewed_at"
)

// Address query options.
const (
	QueryParameterDistinct  = "distinct"
	QueryParameterSyncAgent = "caller_is_sync_agent"
)

// Content types returned by type lookups.
const (
	ImagesContentType      = "vnd.dataprovider.dir/vnd.sample.image"
	ImagesItemContentType  = "vnd.dataprovider.item/vnd.sample.image"
	HistoryContentType     = "vnd.dataprovider.dir/vnd.sample.history"
	HistoryItemContentType = "vnd.dataprovider.item/vnd.sample.history"
)

// ManagedTables lists every table recreated by a whole-store reset.
var ManagedTables = []string{TableImages, TableHistory}
