//go:build ignore

// Package main generates a synthetic JSONL chunk corpus for benchmarking.
// Usage: go run scripts/generate-corpus.go -chunks 10000 -output testdata/bench/corpus.jsonl
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
)

var (
	numChunks = flag.Int("chunks", 10000, "Number of chunks to generate")
	numDocs   = flag.Int("docs", 200, "Number of documents to spread chunks across")
	output    = flag.String("output", "testdata/bench/corpus.jsonl", "Output file")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
)

// Vocabulary pools mix Chinese business terms with English jargon the
// way real enterprise documents do.
var (
	subjects = []string{
		"数据分析", "项目计划", "销售报告", "供应链管理", "客户服务",
		"市场营销", "财务预算", "人力资源", "产品设计", "质量控制",
	}
	actions = []string{
		"的结果显示", "需要进一步评估", "已经完成初步审核", "存在明显的改进空间",
		"超出了预期目标", "与去年同期相比有所增长", "将在下个季度启动",
	}
	english = []string{
		"KPI", "ROI", "OKR", "dashboard", "pipeline", "forecast",
		"baseline", "milestone", "stakeholder", "roadmap",
	}
	tags = []string{
		"数据", "项目", "销售", "财务", "市场", "运营", "产品", "客户",
	}
)

type chunkDoc struct {
	ID       string   `json:"id"`
	DocID    string   `json:"doc_id"`
	DocName  string   `json:"doc_name"`
	KBID     string   `json:"kb_id"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags,omitempty"`
	PageRank float64  `json:"pagerank,omitempty"`
}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(filepath.Dir(*output), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	f, err := os.Create(*output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i := 0; i < *numChunks; i++ {
		doc := rng.Intn(*numDocs)
		subject := subjects[rng.Intn(len(subjects))]
		content := fmt.Sprintf("%s%s，相关 %s 见附件。%s%s。",
			subject, actions[rng.Intn(len(actions))],
			english[rng.Intn(len(english))],
			subjects[rng.Intn(len(subjects))], actions[rng.Intn(len(actions))])
		c := chunkDoc{
			ID:      fmt.Sprintf("c%06d", i),
			DocID:   fmt.Sprintf("d%04d", doc),
			DocName: fmt.Sprintf("doc-%04d.md", doc),
			KBID:    fmt.Sprintf("kb%d", doc%4),
			Title:   subject + "报告",
			Content: content,
			Tags:    []string{tags[rng.Intn(len(tags))]},
		}
		if rng.Float64() < 0.1 {
			c.PageRank = float64(rng.Intn(5))
		}
		if err := enc.Encode(c); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %d chunks across %d documents to %s\n", *numChunks, *numDocs, *output)
}
