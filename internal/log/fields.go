package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldDurationHuman = "duration_human"
	FieldUserAgent     = "user_agent"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldUserID        = "user_id"
	FieldUsername      = "username"
	FieldAccountID     = "account_id"
	FieldCategoryID    = "category_id"
	FieldTransactionID = "transaction_id"
	FieldAmount        = "amount"
	FieldCurrency      = "currency"
	FieldBaseCurrency  = "base_currency"
	FieldEventID       = "event_id"
	FieldSheetsRef     = "sheets_ref"
)

// Components
const (
	ComponentApp         = "app"
	ComponentHTTP        = "http"
	ComponentAuth        = "auth"
	ComponentDashboard   = "dashboard"
	ComponentTransaction = "transaction"
	ComponentStorage     = "storage"
	ComponentRates       = "rates"
	ComponentAMQP        = "amqp"
	ComponentWorker      = "worker"
	ComponentSheets      = "sheets"
	ComponentCache       = "cache"
	ComponentRateLimit   = "rate_limit"
	ComponentTrace       = "trace"
	ComponentBackend     = "backend"
)

// Operations
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpList     = "list"
	OpSeed     = "seed"
	OpLogin    = "login"
	OpRegister = "register"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpAppend   = "append"
	OpRender   = "render"
	OpMigrate  = "migrate"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// Fields is a small builder for structured log attributes.
type Fields map[string]any

func NewFields() Fields {
	return make(Fields)
}

func (f Fields) WithComponent(component string) Fields {
	f[FieldComponent] = component
	return f
}

func (f Fields) WithRequestID(requestID string) Fields {
	if requestID != "" {
		f[FieldRequestID] = requestID
	}
	return f
}

func (f Fields) WithError(err error) Fields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f Fields) WithOperation(op string) Fields {
	f[FieldOperation] = op
	return f
}

func (f Fields) WithUser(userID int64) Fields {
	f[FieldUserID] = userID
	return f
}

// WithTransaction adds the identifying fields of a stored transaction.
func (f Fields) WithTransaction(id, accountID, categoryID int64, amount, currency string) Fields {
	f[FieldTransactionID] = id
	f[FieldAccountID] = accountID
	f[FieldCategoryID] = categoryID
	f[FieldAmount] = amount
	f[FieldCurrency] = currency
	return f
}

// ToSlice flattens the fields into slog key/value pairs.
func (f Fields) ToSlice() []any {
	out := make([]any, 0, len(f)*2)
	for k, v := range f {
		out = append(out, k, v)
	}
	return out
}
