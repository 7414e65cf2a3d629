// Package optimizer 提供值班方案优化算法
package optimizer

import (
	"context"
	"sync"
)

// ParallelEvaluator 并行评估器
type ParallelEvaluator struct {
	workers   int
	evaluator Evaluator
}

// NewParallelEvaluator 创建并行评估器
func NewParallelEvaluator(workers int, evaluator Evaluator) *ParallelEvaluator {
	if workers <= 0 {
		workers = 4
	}
	return &ParallelEvaluator{
		workers:   workers,
		evaluator: evaluator,
	}
}

// EvaluationResult 评估结果
type EvaluationResult struct {
	Index          int
	Solution       *Solution
	Score          float64
	HardViolations int
}

// EvaluateBatch 并行评估一批解决方案
func (p *ParallelEvaluator) EvaluateBatch(ctx context.Context, solutions []*Solution) []EvaluationResult {
	if len(solutions) == 0 {
		return nil
	}

	resultChan := make(chan EvaluationResult, len(solutions))
	jobChan := make(chan struct {
		index    int
		solution *Solution
	}, len(solutions))

	// 启动工作协程
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobChan {
				select {
				case <-ctx.Done():
					return
				default:
					result := p.evaluateSingle(job.solution)
					result.Index = job.index
					resultChan <- result
				}
			}
		}()
	}

	// 发送任务
	go func() {
		for i, sol := range solutions {
			jobChan <- struct {
				index    int
				solution *Solution
			}{i, sol}
		}
		close(jobChan)
	}()

	// 等待完成
	go func() {
		wg.Wait()
		close(resultChan)
	}()

	// 收集结果
	results := make([]EvaluationResult, len(solutions))
	for result := range resultChan {
		results[result.Index] = result
	}

	return results
}

// evaluateSingle 评估单个解决方案
func (p *ParallelEvaluator) evaluateSingle(solution *Solution) EvaluationResult {
	if p.evaluator == nil {
		return EvaluationResult{
			Solution: solution,
			Score:    0,
		}
	}

	score, hardViolations := p.evaluator.Evaluate(solution.Assignments)

	return EvaluationResult{
		Solution:       solution,
		Score:          score,
		HardViolations: hardViolations,
	}
}

// FindBest 从结果中找出最优解
func (p *ParallelEvaluator) FindBest(results []EvaluationResult) *EvaluationResult {
	if len(results) == 0 {
		return nil
	}

	best := &results[0]
	for i := 1; i < len(results); i++ {
		if results[i].Score < best.Score {
			best = &results[i]
		}
	}
	return best
}
