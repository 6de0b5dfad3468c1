// Package route resolves resource addresses to storage targets.
//
// A Router holds an immutable table of (path shape -> Kind) bindings for
// one authority. Resolve maps an Address to exactly one Resolution or fails
// with UNKNOWN_RESOURCE; there is no prefix or best-effort matching:
//
//	images          -> ImagesCollection  (table images)
//	images/<key>    -> ImagesItem        (images.image_id = key)
//	history         -> HistoryCollection (table history)
//	history/<key>   -> HistoryItem       (history._id = key)
//	<root>          -> WholeStore
//
// Kind is a closed enum; consumers switch over it exhaustively.
package route
