package api

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"ReportMapper/api/constants"
	"ReportMapper/internal/logger"
)

// Error response helper
func RespondWithError(w http.ResponseWriter, status int, errMsg string) {
	logger.L().WithField("status", status).Error(errMsg)
	w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   errMsg,
	})
}

// RespondWithResult sends a consistent JSON response for success or error
func RespondWithResult(w http.ResponseWriter, success bool, errMsg string) {
	w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
	if success {
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
		return
	}
	logger.L().Error(errMsg)
	json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": errMsg})
}

// RespondWithPayload sends a consistent JSON response and includes an arbitrary payload
func RespondWithPayload(w http.ResponseWriter, success bool, errMsg string, payload interface{}) {
	RespondWithStatusPayload(w, http.StatusOK, success, errMsg, payload)
}

// RespondWithStatusPayload is RespondWithPayload with an explicit status, for
// rejected edits that still return the editor state.
func RespondWithStatusPayload(w http.ResponseWriter, status int, success bool, errMsg string, payload interface{}) {
	w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
	resp := map[string]interface{}{"success": success}
	if !success && errMsg != "" {
		resp["error"] = errMsg
		logger.L().WithField("status", status).Warn(errMsg)
	}
	if payload != nil {
		// use a conventional key `rows` for payloads
		resp["rows"] = payload
	}
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// LogInfo logs an informational message with fields
func LogInfo(msg string, fields logrus.Fields) {
	logger.L().WithFields(fields).Info(msg)
}

// LogError logs an error message with fields
func LogError(msg string, err error, fields logrus.Fields) {
	logger.L().WithFields(fields).WithError(err).Error(msg)
}
