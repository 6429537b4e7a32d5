package response

// Response represents the standard API envelope
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Page wraps a paginated listing
type Page struct {
	Items      interface{} `json:"items"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// Success returns a success response wrapping the data
func Success(data interface{}) Response {
	return Response{Success: true, Data: data}
}

// SuccessMessage returns a success response carrying a human readable message
func SuccessMessage(message string, data interface{}) Response {
	return Response{Success: true, Message: message, Data: data}
}

// Error returns an error response wrapping the message
func Error(message string) Response {
	return Response{Success: false, Message: message}
}

// Paginated builds a Page from a listing and its pagination parameters
func Paginated(items interface{}, total int64, page, limit int) Page {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Page{Items: items, Total: total, Page: page, Limit: limit, TotalPages: totalPages}
}
