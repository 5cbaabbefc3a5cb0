package core

// StoreOptions contains options for storing a memory.
type StoreOptions struct {
	// UserID associates the memory with a user.
	UserID string

	// SessionID associates the memory with a conversation session.
	SessionID string

	// Category classifies the memory.
	Category string

	// Tags are free-form labels attached to the memory.
	Tags []string

	// Custom carries any additional metadata fields.
	Custom map[string]interface{}
}

// StoreOption configures a store operation.
type StoreOption func(*StoreOptions)

// WithUserID associates the memory with a user.
func WithUserID(userID string) StoreOption {
	return func(o *StoreOptions) {
		o.UserID = userID
	}
}

// WithSessionID associates the memory with a conversation session.
func WithSessionID(sessionID string) StoreOption {
	return func(o *StoreOptions) {
		o.SessionID = sessionID
	}
}

// WithCategory classifies the memory.
func WithCategory(category string) StoreOption {
	return func(o *StoreOptions) {
		o.Category = category
	}
}

// WithTags attaches free-form labels to the memory.
func WithTags(tags ...string) StoreOption {
	return func(o *StoreOptions) {
		o.Tags = tags
	}
}

// WithCustom attaches an additional metadata field to the memory.
func WithCustom(key string, value interface{}) StoreOption {
	return func(o *StoreOptions) {
		if o.Custom == nil {
			o.Custom = make(map[string]interface{})
		}
		o.Custom[key] = value
	}
}

// metadata converts the options to the record's Metadata.
func (o *StoreOptions) metadata() Metadata {
	return Metadata{
		UserID:    o.UserID,
		SessionID: o.SessionID,
		Category:  o.Category,
		Tags:      o.Tags,
		Custom:    o.Custom,
	}
}

// RetrieveOptions contains options for retrieving memories.
type RetrieveOptions struct {
	// TopK is the number of results to return. -1 means "use the store's
	// configured default". An explicit 0 yields an empty result.
	TopK int

	// UserID restricts results to memories stored for this user.
	UserID string

	// SessionID restricts results to memories from this session.
	SessionID string

	// Category restricts results to this category.
	Category string

	// Extra are additional metadata equality filters.
	Extra map[string]interface{}
}

// RetrieveOption configures a retrieval.
type RetrieveOption func(*RetrieveOptions)

// defaultRetrieveOptions returns options with TopK unset.
func defaultRetrieveOptions() *RetrieveOptions {
	return &RetrieveOptions{TopK: -1}
}

// WithTopK sets the number of results to return. Passing 0 yields an empty
// result; omitting the option uses the store's configured default.
func WithTopK(topK int) RetrieveOption {
	return func(o *RetrieveOptions) {
		o.TopK = topK
	}
}

// WithUserFilter restricts results to memories stored for the given user.
func WithUserFilter(userID string) RetrieveOption {
	return func(o *RetrieveOptions) {
		o.UserID = userID
	}
}

// WithSessionFilter restricts results to memories from the given session.
func WithSessionFilter(sessionID string) RetrieveOption {
	return func(o *RetrieveOptions) {
		o.SessionID = sessionID
	}
}

// WithCategoryFilter restricts results to the given category.
func WithCategoryFilter(category string) RetrieveOption {
	return func(o *RetrieveOptions) {
		o.Category = category
	}
}

// WithFilter adds a metadata equality filter.
func WithFilter(key string, value interface{}) RetrieveOption {
	return func(o *RetrieveOptions) {
		if o.Extra == nil {
			o.Extra = make(map[string]interface{})
		}
		o.Extra[key] = value
	}
}

// filter builds the flat metadata filter passed to the vector index.
// Returns nil when no filters are set.
func (o *RetrieveOptions) filter() map[string]interface{} {
	if o.UserID == "" && o.SessionID == "" && o.Category == "" && len(o.Extra) == 0 {
		return nil
	}

	filter := make(map[string]interface{}, len(o.Extra)+3)
	for k, v := range o.Extra {
		filter[k] = v
	}
	if o.UserID != "" {
		filter[metaKeyUserID] = o.UserID
	}
	if o.SessionID != "" {
		filter[metaKeySessionID] = o.SessionID
	}
	if o.Category != "" {
		filter[metaKeyCategory] = o.Category
	}
	return filter
}
