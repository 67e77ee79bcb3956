package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"wineclass/inference"
	"wineclass/ml"
	"wineclass/wine"
)

var (
	predictService *inference.Service
	model          *ml.Ensemble
	handlerLogger  = zap.NewNop()
)

// SetService 设置推理服务
func SetService(s *inference.Service) {
	predictService = s
}

// SetModel 设置已加载的模型
func SetModel(m *ml.Ensemble) {
	model = m
}

// SetLogger 设置处理器日志
func SetLogger(l *zap.Logger) {
	if l != nil {
		handlerLogger = l
	}
}

func RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("POST /predict", handlePredict)
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/model", handleModelInfo)
}

// PredictResponse 预测响应体
type PredictResponse struct {
	Prediction int `json:"Prediction"`
}

func handlePredict(w http.ResponseWriter, r *http.Request) {
	if predictService == nil {
		respondError(w, http.StatusServiceUnavailable, "service not ready")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		respondError(w, http.StatusBadRequest, "unable to read request body")
		return
	}

	sample, err := wine.ParseSample(body)
	if err != nil {
		if metricsCollector != nil {
			metricsCollector.RecordValidationFailure()
		}
		var verr *wine.ValidationError
		if errors.As(err, &verr) {
			respondJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error":  "validation failed",
				"fields": verr.Fields,
			})
			return
		}
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	label, err := predictService.Predict(r.Context(), sample)
	if err != nil {
		if errors.Is(err, inference.ErrNotReady) {
			respondError(w, http.StatusServiceUnavailable, "service not ready")
			return
		}
		// 对外不暴露内部细节，详细原因只进日志
		handlerLogger.Error("prediction failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "prediction failed")
		return
	}

	respondJSON(w, http.StatusOK, PredictResponse{Prediction: label})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	if predictService == nil || model == nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleModelInfo(w http.ResponseWriter, r *http.Request) {
	if model == nil {
		respondError(w, http.StatusServiceUnavailable, "model not loaded")
		return
	}
	respondJSON(w, http.StatusOK, model.Info())
}

// respondJSON 统一JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		handlerLogger.Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
