// Package api contains the request and response bodies of the v1 HTTP API.
package api

// Auth API Requests

// RegisterRequest creates an account with the configured default role.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginRequest exchanges credentials for a session token.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

// Session API Requests

// DataTypeRequest selects the upload template of the session.
type DataTypeRequest struct {
	DataType string `json:"data_type" validate:"required,datatype"`
}

// PageRequest records the page the client shows.
type PageRequest struct {
	Page string `json:"page" validate:"required,oneof=home upload transform forecast my_data"`
}

// Workspace API Requests

// TransformRequest carries the options of one operation. The operation is
// named in the URL.
type TransformRequest struct {
	Params map[string]interface{} `json:"params,omitempty"`
}

// ForecastRequest runs one model on a numeric column of the working table.
// A zero horizon uses the server default.
type ForecastRequest struct {
	Model   string                 `json:"model" validate:"required,oneof=arima prophet moving_average exponential_smoothing linear_regression random_forest svr lstm"`
	Column  string                 `json:"column" validate:"required,max=255"`
	Horizon int                    `json:"horizon" validate:"gte=0,lte=10000"`
	Params  map[string]interface{} `json:"params,omitempty"`
}
