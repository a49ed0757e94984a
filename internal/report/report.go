// Package report は来訪者記録のPDFレポート出力を提供します。
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/yourusername/sentinel-safe/internal/visitor"
)

const (
	outputFilename = "visitor-report.pdf"
	layoutFilename = "layout.json"
)

// Result はレポート生成の成果を表します。
type Result struct {
	JobID          string `json:"jobId"`
	OutputPath     string `json:"outputPath"`
	OutputFilename string `json:"outputFilename"`
	OutputSize     int64  `json:"outputSize"`
	RowCount       int    `json:"rowCount"`
}

// Service は来訪者記録ストアからPDFレポートを生成します。
type Service struct {
	visitors visitor.Store
	baseDir  string
}

// NewService は Service を作成します。作業ディレクトリは一時領域に作ります。
func NewService(visitors visitor.Store) *Service {
	return &Service{
		visitors: visitors,
		baseDir:  filepath.Join(os.TempDir(), "sentinel-safe"),
	}
}

// Generate は条件に合致する来訪者記録をPDFに書き出します。
// progress が非nilの場合、段階と進捗率を通知します。
func (s *Service) Generate(ctx context.Context, jobID string, filter visitor.ListFilter, progress func(stage string, percent int)) (_ *Result, err error) {
	if jobID == "" {
		return nil, fmt.Errorf("jobID is required")
	}
	report := func(stage string, percent int) {
		if progress != nil {
			progress(stage, percent)
		}
	}

	report("load", 10)
	// レポートはページングせず、条件に合う全件を対象にする
	filter.Limit = maxReportRows
	filter.Offset = 0
	rows, err := s.visitors.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load visitors for report: %w", err)
	}

	jobDir := filepath.Join(s.baseDir, jobID)
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create job dir: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(jobDir)
		}
	}()

	report("render", 40)
	layout, err := buildLayout(rows, filter, time.Now())
	if err != nil {
		return nil, err
	}
	layoutPath := filepath.Join(jobDir, layoutFilename)
	if err := os.WriteFile(layoutPath, layout, 0o640); err != nil {
		return nil, fmt.Errorf("failed to write layout: %w", err)
	}

	outputPath := filepath.Join(jobDir, outputFilename)
	if err := pdfapi.CreateFile("", layoutPath, outputPath, nil); err != nil {
		return nil, fmt.Errorf("failed to create pdf: %w", err)
	}

	report("write", 80)
	if err := pdfapi.ValidateFile(outputPath, nil); err != nil {
		return nil, fmt.Errorf("generated pdf failed validation: %w", err)
	}
	if err := pdfapi.OptimizeFile(outputPath, outputPath, nil); err != nil {
		return nil, fmt.Errorf("failed to optimize pdf: %w", err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, err
	}

	report("completed", 100)
	return &Result{
		JobID:          jobID,
		OutputPath:     outputPath,
		OutputFilename: outputFilename,
		OutputSize:     info.Size(),
		RowCount:       len(rows),
	}, nil
}

// OpenResultFile はジョブIDに対応する成果物を開きます。
func (s *Service) OpenResultFile(jobID string) (*Result, *os.File, error) {
	if jobID == "" {
		return nil, nil, fmt.Errorf("jobID is required")
	}

	outputPath := filepath.Join(s.baseDir, jobID, outputFilename)
	file, err := os.Open(outputPath)
	if err != nil {
		return nil, nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, err
	}

	return &Result{
		JobID:          jobID,
		OutputPath:     outputPath,
		OutputFilename: outputFilename,
		OutputSize:     info.Size(),
	}, file, nil
}

// Cleanup はジョブの作業ディレクトリを削除します。
func (s *Service) Cleanup(jobID string) error {
	if jobID == "" {
		return nil
	}
	return os.RemoveAll(filepath.Join(s.baseDir, jobID))
}
