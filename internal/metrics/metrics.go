// Package metrics provides Prometheus metrics for the driveftp server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Drive API metrics
	driveCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "driveftp_drive_call_duration_seconds",
			Help:    "Drive API call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	driveCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "driveftp_drive_calls_total",
			Help: "Total Drive API calls",
		},
		[]string{"operation", "status"},
	)

	// Content transfer metrics
	contentBytesDownloaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "driveftp_content_bytes_downloaded_total",
			Help: "Total bytes streamed to FTP clients",
		},
	)

	contentBytesUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "driveftp_content_bytes_uploaded_total",
			Help: "Total bytes pushed to the remote store",
		},
	)

	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "driveftp_uploads_total",
			Help: "Total content uploads",
		},
		[]string{"status"},
	)

	transfersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "driveftp_transfers_active",
			Help: "Number of background transfers currently registered",
		},
	)

	// FTP session metrics
	ftpLoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "driveftp_ftp_logins_total",
			Help: "Total FTP login attempts",
		},
		[]string{"result"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve starts a metrics HTTP listener on addr. Blocks.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return http.ListenAndServe(addr, mux)
}

// RecordDriveCall records one Drive API call.
func RecordDriveCall(operation string, duration time.Duration, success bool) {
	driveCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
	status := "success"
	if !success {
		status = "error"
	}
	driveCallsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDownload records bytes streamed to a client.
func RecordDownload(bytes int64) {
	contentBytesDownloaded.Add(float64(bytes))
}

// RecordUpload records a content upload.
func RecordUpload(bytes int64, success bool) {
	contentBytesUploaded.Add(float64(bytes))
	status := "success"
	if !success {
		status = "error"
	}
	uploadsTotal.WithLabelValues(status).Inc()
}

// SetTransfersActive sets the current background transfer count.
func SetTransfersActive(n int) {
	transfersActive.Set(float64(n))
}

// RecordFTPLogin records an FTP login attempt.
func RecordFTPLogin(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	ftpLoginsTotal.WithLabelValues(result).Inc()
}
