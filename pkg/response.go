package pkg

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
)

// ErrorResponse, tüm hata yanıtlarının ortak şekli.
// Frontend title'ı toast başlığı, message'ı açıklama olarak gösterir.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// JSON, body'yi olduğu gibi serialize eder.
// Endpoint'lerin yanıt şekli farklı olduğu için ({success, tasks},
// {success, message, accessToken} ...) zarf burada eklenmez.
func JSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[response] failed to encode body: %v", err)
	}
}

// Error, domain error'ını uygun status + {title, message} olarak yazar.
// 5xx durumunda iç hata detayı client'a sızdırılmaz, sadece loglanır.
func Error(w http.ResponseWriter, err error) {
	status := mapErrorToStatus(err)

	message := publicMessage(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[response] internal error: %v", err)
		message = "Something went wrong, please try again later"
	}

	ErrorWithMessage(w, status, message)
}

// ErrorWithMessage, belirtilen status ve mesajla hata yanıtı yazar.
func ErrorWithMessage(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{
		Success: false,
		Title:   StatusTitle(status),
		Message: message,
	})
}

// StatusTitle, status koduna karşılık gelen başlığı döner.
func StatusTitle(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Validation Failed"
	case http.StatusUnauthorized:
		return "Unauthorized"
	case http.StatusForbidden:
		return "Forbidden"
	case http.StatusNotFound:
		return "Not Found"
	case http.StatusConflict:
		return "Conflict"
	case http.StatusTooManyRequests:
		return "Too Many Requests"
	case http.StatusInternalServerError:
		return "Server Error"
	default:
		return "Unknown Error"
	}
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage, "bad request: title is required" gibi wrap edilmiş
// mesajdan sentinel önekini atar.
func publicMessage(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{ErrNotFound, ErrUnauthorized, ErrForbidden, ErrAlreadyExists, ErrBadRequest} {
		if rest, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok {
			return rest
		}
	}
	return msg
}
