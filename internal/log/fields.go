package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldUserUID     = "user_uid"
	FieldNamespace   = "namespace"
	FieldCollection  = "collection"
	FieldDocumentID  = "document_id"
	FieldPeriodID    = "period_id"
	FieldPeriodStart = "period_start"
	FieldPeriodEnd   = "period_end"
	FieldFrequency   = "frequency"
	FieldDirection   = "direction"
	FieldExpenseID   = "expense_id"
	FieldAccountID   = "account_id"
	FieldCompositeID = "composite_id"
	FieldAmount      = "amount"
	FieldCount       = "count"
	FieldEvent       = "event"
	FieldDuration    = "duration_ms"
	FieldSuccess     = "success"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentTracker = "tracker"
	ComponentPeriods = "periods"
	ComponentSync    = "sync"
	ComponentStorage = "storage"
	ComponentAuth    = "auth"
	ComponentAMQP    = "amqp"
	ComponentSheets  = "sheets"
	ComponentCache   = "cache"
	ComponentBackend = "backend"
	ComponentCLI     = "cli"
	ComponentWorker  = "worker"
)

// Operations defines standard operation names
const (
	OpCreate      = "create"
	OpRead        = "read"
	OpUpdate      = "update"
	OpDelete      = "delete"
	OpList        = "list"
	OpSet         = "set"
	OpSync        = "sync"
	OpMaterialize = "materialize"
	OpNavigate    = "navigate"
	OpReset       = "reset"
	OpSignIn      = "sign_in"
	OpSignOut     = "sign_out"
	OpPublish     = "publish"
	OpExport      = "export"
	OpShutdown    = "shutdown"
	OpStartup     = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithUser(uid string) LogFields {
	f[FieldUserUID] = uid
	return f
}

// WithDocument adds the store coordinates of a document.
func (f LogFields) WithDocument(namespace, collection, id string) LogFields {
	f[FieldNamespace] = namespace
	f[FieldCollection] = collection
	if id != "" {
		f[FieldDocumentID] = id
	}
	return f
}

// WithPeriod adds pay period fields
func (f LogFields) WithPeriod(id, start, end string) LogFields {
	f[FieldPeriodID] = id
	f[FieldPeriodStart] = start
	f[FieldPeriodEnd] = end
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
