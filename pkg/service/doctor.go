package service

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Kush1612/BuckIt/pkg/client"
	"github.com/Kush1612/BuckIt/pkg/config"
	clierrors "github.com/Kush1612/BuckIt/pkg/errors"
	"github.com/Kush1612/BuckIt/pkg/formatter"
	"github.com/Kush1612/BuckIt/pkg/logger"
	"github.com/Kush1612/BuckIt/pkg/storage"
)

// Exit codes of the doctor command.
const (
	ExitNoURL       = 2
	ExitUnreachable = 3
	doctorTimeout   = 10 * time.Second
)

// DoctorReport describes the configured backend and whether it answered.
// Bucket visibility is only probed once the backend is reachable.
type DoctorReport struct {
	URL          string `json:"url"`
	AnonKey      string `json:"anon_key"`
	KeySet       bool   `json:"key_set"`
	ConfigFile   string `json:"config_file"`
	Status       int    `json:"status"`
	Bucket       string `json:"bucket,omitempty"`
	BucketPublic bool   `json:"bucket_public"`
}

// DoctorService checks the backend configuration.
type DoctorService struct {
	backend func() config.Backend
	bucket  func(config.Backend) *storage.Bucket
	timeout time.Duration
}

// NewDoctorService creates a new doctor service
func NewDoctorService() *DoctorService {
	return &DoctorService{backend: config.ResolveBackend, bucket: configuredBucket, timeout: doctorTimeout}
}

// configuredBucket points the API client at b and returns the photo bucket.
func configuredBucket(b config.Backend) *storage.Bucket {
	client.InitWith(b, doctorTimeout)
	return storage.New(config.GetString("storage.bucket"))
}

// Check resolves the Supabase URL and key and issues one GET against the
// project URL. Any HTTP status counts as reachable. A reachable backend then
// has its photo bucket probed for public access.
func (s *DoctorService) Check(ctx context.Context) (*DoctorReport, error) {
	b := s.backend()
	report := &DoctorReport{
		URL:        b.URL,
		AnonKey:    formatter.MaskKey(b.AnonKey),
		KeySet:     b.AnonKey != "",
		ConfigFile: config.GetConfigFilePath(),
	}
	if b.URL == "" {
		return report, clierrors.NotConfiguredError().WithExitCode(ExitNoURL)
	}

	req := resty.New().SetTimeout(s.timeout).R().SetContext(ctx)
	if b.AnonKey != "" {
		req.SetHeader("apikey", b.AnonKey)
	}
	resp, err := req.Get(b.URL)
	if err != nil {
		logger.Debug("Backend unreachable", "url", b.URL, "error", err)
		return report, clierrors.NewCLIError(clierrors.ErrorTypeNetwork, "Network error: "+err.Error(), err).
			WithSuggestion("Check the project URL and your connection").
			WithExitCode(ExitUnreachable)
	}
	report.Status = resp.StatusCode()

	if s.bucket != nil {
		if bucket := s.bucket(b); bucket != nil && bucket.Name() != "" {
			report.Bucket = bucket.Name()
			report.BucketPublic = bucket.IsPublic(ctx)
		}
	}
	return report, nil
}
