// Package sync provides the synchronization pipeline between the remote Door43
// catalog service and the local index.
//
// # Overview
//
// The Client fetches hierarchical JSON catalogs and reconciles them into the
// Library inside a single transaction per call:
//
//	Door43 API (or file:// mirror)
//	     ├── catalog.json              → languages → projects → resources
//	     ├── langnames.json            → approved target languages
//	     ├── questionnaire/            → questionnaires and questions
//	     ├── templanguages/            → temporary target languages
//	     └── templanguages/assignment/ → temporary → approved links
//	                                      ↓
//	                                   Client
//	                                      ↓
//	                                 SQLite index
//
// # Usage
//
//	library, err := db.OpenIndex(ctx, "index.db")
//	if err != nil {
//	    return err
//	}
//	defer library.Close()
//
//	client := sync.New(library, fetch.New(fetch.DefaultOptions()), sync.Options{})
//
//	// Indexes the primary catalog and registers the auxiliary catalogs
//	if err := client.UpdatePrimaryIndex(ctx, "https://api.unfoldingword.org/ts/txt/2/catalog.json", nil); err != nil {
//	    return err
//	}
//
//	// Index an auxiliary catalog registered above
//	err = client.UpdateCatalogIndex(ctx, "langnames", func(tag string, max, completed int64) {
//	    fmt.Printf("%s %d/%d\n", tag, completed, max)
//	})
//
// # Error Handling
//
// Every failure rolls the transaction back and is returned unchanged:
//
//   - *fetch.StatusError and connection errors: IsTransport
//   - *legacy.ParseError: IsParse
//   - ErrUnknownCatalog, ErrUnsupportedCatalog: before any transaction
//
// Nothing is retried at this layer beyond the fetcher's own retry policy.
//
// # Concurrency
//
// Update calls on one Client are serialized by a mutex. Calling
// BeginTransaction twice on the same Library panics, so two Clients must not
// share a Library. Reads through Index may run at any time and only ever see
// committed state.
package sync
