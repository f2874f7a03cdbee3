package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nrenier/ICorNet-sub000/config"
)

func TestNewMinioSaver(t *testing.T) {
	cfg := &config.MinioConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "test",
		SecretKey: "test",
		Bucket:    "test",
	}

	saver, err := NewMinioSaver(cfg)
	if err != nil {
		t.Fatalf("NewMinioSaver failed: %v", err)
	}
	if saver == nil {
		t.Fatal("Expected non-nil saver")
	}
}

func TestMinioSaverPublicURL(t *testing.T) {
	tests := []struct {
		name       string
		useSSL     bool
		endpoint   string
		bucket     string
		objectName string
		expected   string
	}{
		{
			name:       "http url",
			useSSL:     false,
			endpoint:   "localhost:9000",
			bucket:     "icornet-reports",
			objectName: "reports/report_1.pdf",
			expected:   "http://localhost:9000/icornet-reports/reports/report_1.pdf",
		},
		{
			name:       "https url",
			useSSL:     true,
			endpoint:   "minio.example.com",
			bucket:     "archive",
			objectName: "Acme.pdf",
			expected:   "https://minio.example.com/archive/Acme.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saver := &MinioSaver{
				bucket: tt.bucket,
				config: &config.MinioConfig{
					Endpoint: tt.endpoint,
					UseSSL:   tt.useSSL,
				},
			}

			result := saver.PublicURL(tt.objectName)
			if result != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, result)
			}
		})
	}
}

func TestMinioSaverObjectName(t *testing.T) {
	tests := []struct {
		prefix   string
		fileName string
		expected string
	}{
		{"", "report_1.pdf", "report_1.pdf"},
		{"reports", "report_1.pdf", "reports/report_1.pdf"},
		{"reports/", "../../etc/passwd", "reports/passwd"},
	}

	for _, tt := range tests {
		saver := &MinioSaver{config: &config.MinioConfig{Prefix: tt.prefix}}
		if got := saver.ObjectName(tt.fileName); got != tt.expected {
			t.Errorf("ObjectName(%q) with prefix %q = %q, want %q", tt.fileName, tt.prefix, got, tt.expected)
		}
	}
}

func TestMinioSaverSaveWithCancelledContext(t *testing.T) {
	saver, err := NewMinioSaver(&config.MinioConfig{
		Endpoint:  "localhost:9",
		AccessKey: "test",
		SecretKey: "test",
		Bucket:    "test",
	})
	if err != nil {
		t.Fatalf("NewMinioSaver failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := saver.Save(ctx, "report_1.pdf", []byte("%PDF")); err == nil {
		t.Error("Expected error with cancelled context")
	}
}

// fakeS3 accepts every bucket check and upload.
func fakeS3(t *testing.T) (endpoint string, heads, puts *int32) {
	t.Helper()
	heads, puts = new(int32), new(int32)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			atomic.AddInt32(heads, 1)
		case http.MethodPut:
			atomic.AddInt32(puts, 1)
			_, _ = io.Copy(io.Discard, r.Body)
			w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return strings.TrimPrefix(srv.URL, "http://"), heads, puts
}

func TestMinioSaverRetriesBucketCheckAfterFailure(t *testing.T) {
	endpoint, heads, puts := fakeS3(t)
	saver, err := NewMinioSaver(&config.MinioConfig{
		Endpoint:  endpoint,
		AccessKey: "test",
		SecretKey: "testsecret",
		Bucket:    "reports",
		Region:    "us-east-1",
	})
	if err != nil {
		t.Fatalf("NewMinioSaver failed: %v", err)
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := saver.Save(cancelled, "report_1.pdf", []byte("%PDF")); err == nil {
		t.Fatal("Expected error with cancelled context")
	}

	url, err := saver.Save(context.Background(), "report_1.pdf", []byte("%PDF"))
	if err != nil {
		t.Fatalf("Expected the bucket check to be retried, got %v", err)
	}
	if url != "http://"+endpoint+"/reports/report_1.pdf" {
		t.Errorf("Unexpected object URL %s", url)
	}

	checks := atomic.LoadInt32(heads)
	if checks == 0 {
		t.Fatal("Expected a bucket check")
	}
	if _, err := saver.Save(context.Background(), "report_2.pdf", []byte("%PDF")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if got := atomic.LoadInt32(heads); got != checks {
		t.Errorf("Expected no bucket check after success, got %d more", got-checks)
	}
	if got := atomic.LoadInt32(puts); got != 2 {
		t.Errorf("Expected 2 uploads, got %d", got)
	}
}

func TestMinioSaverLink(t *testing.T) {
	saver, err := NewMinioSaver(&config.MinioConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "test",
		SecretKey: "testsecret",
		Bucket:    "reports",
		Region:    "us-east-1",
		Prefix:    "archive",
		LinkHours: 2,
	})
	if err != nil {
		t.Fatalf("NewMinioSaver failed: %v", err)
	}

	link, err := saver.Link(context.Background(), "report_1.pdf")
	if err != nil {
		t.Fatalf("Link failed: %v", err)
	}
	if !strings.HasPrefix(link, "http://localhost:9000/reports/archive/report_1.pdf?") {
		t.Errorf("Unexpected link %s", link)
	}
	if !strings.Contains(link, "X-Amz-Expires=7200") || !strings.Contains(link, "X-Amz-Signature=") {
		t.Errorf("Expected a signed link valid for 2h, got %s", link)
	}
}

func TestMinioSaverLinkTTLDefault(t *testing.T) {
	saver := &MinioSaver{config: &config.MinioConfig{}}
	if got := saver.LinkTTL(); got != 24*time.Hour {
		t.Errorf("Expected 24h default, got %v", got)
	}
}
