package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/provenly/signalguard/internal/model"
)

// SignalVerifier verifies one signal end to end.
type SignalVerifier interface {
	VerifySignal(ctx context.Context, input model.VerifySignalInput) *model.VerificationResult
}

// VerifyJob wraps one signal for pool execution.
type VerifyJob struct {
	Line     int
	Input    model.VerifySignalInput
	Verifier SignalVerifier
}

// VerifyResult pairs a signal's verification with its source line.
type VerifyResult struct {
	Line   int
	Result *model.VerificationResult
	Error  error
}

// GetError returns the job-level error, if any.
func (r *VerifyResult) GetError() error {
	return r.Error
}

// Execute runs the verification. The pipeline itself never errors; a
// job error only means the input was unusable.
func (j *VerifyJob) Execute(ctx context.Context) Result {
	if j.Input.Company == "" {
		return &VerifyResult{Line: j.Line, Error: fmt.Errorf("line %d: missing company", j.Line)}
	}
	return &VerifyResult{Line: j.Line, Result: j.Verifier.VerifySignal(ctx, j.Input)}
}

// BatchProcessor verifies many signals concurrently.
type BatchProcessor struct {
	verifier    SignalVerifier
	concurrency int
}

// NewBatchProcessor creates a batch processor.
func NewBatchProcessor(verifier SignalVerifier, concurrency int) *BatchProcessor {
	return &BatchProcessor{verifier: verifier, concurrency: concurrency}
}

// ProcessSignals verifies the given signals on the pool, preserving
// input order in the returned slice.
func (b *BatchProcessor) ProcessSignals(ctx context.Context, inputs []model.VerifySignalInput) []*VerifyResult {
	if len(inputs) == 0 {
		return []*VerifyResult{}
	}

	pool := NewPool(b.concurrency)
	pool.Start()

	for i, input := range inputs {
		pool.Submit(&VerifyJob{Line: i + 1, Input: input, Verifier: b.verifier})
	}

	results := pool.Wait()

	ordered := make([]*VerifyResult, len(results))
	for i, result := range results {
		ordered[i] = result.(*VerifyResult)
	}
	sortByLine(ordered)
	return ordered
}

// ProcessFile reads a JSONL signal file and verifies every line.
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*VerifyResult, error) {
	inputs, err := ReadSignalsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read signals: %w", err)
	}
	return b.ProcessSignals(ctx, inputs), nil
}

// ReadSignalsFromFile reads one VerifySignalInput JSON object per line.
// Empty lines and #-comments are skipped.
func ReadSignalsFromFile(filePath string) ([]model.VerifySignalInput, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var inputs []model.VerifySignalInput

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var input model.VerifySignalInput
		if err := json.Unmarshal([]byte(line), &input); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		inputs = append(inputs, input)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return inputs, nil
}

func sortByLine(results []*VerifyResult) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].Line < results[j].Line
	})
}
