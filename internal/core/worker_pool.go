package core

import (
	"context"
	"sync"
)

// FileJob 单文件分析任务
type FileJob struct {
	Index int
	Path  string
}

// fileResult 单文件分析结果，按 Index 归位以保持输出顺序
type fileResult struct {
	index    int
	findings []Finding
}

// WorkerPool 按文件粒度并行执行分析的工作池
// 每个文件由一个独立的分析过程处理，检测器之间不共享可变状态，
// 因此并行不影响结果；输出顺序由调用方按 Index 归并保证。
type WorkerPool struct {
	workers int
}

// NewWorkerPool 创建工作池
func NewWorkerPool(workers int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{workers: workers}
}

// Run 对文件列表执行 analyze，返回与 files 同序的结果切片
func (wp *WorkerPool) Run(ctx context.Context, files []string, analyze func(path string) []Finding) [][]Finding {
	jobs := make(chan FileJob, wp.workers)
	results := make(chan fileResult, wp.workers)

	var wg sync.WaitGroup
	for w := 0; w < wp.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				results <- fileResult{index: job.Index, findings: analyze(job.Path)}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, path := range files {
			select {
			case <-ctx.Done():
				return
			case jobs <- FileJob{Index: i, Path: path}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([][]Finding, len(files))
	for res := range results {
		ordered[res.index] = res.findings
	}
	return ordered
}
