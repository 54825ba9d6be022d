package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/core"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/detectors"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/report"
)

// options 一次运行的全部配置，命令行参数优先于配置文件
type options struct {
	workers  int
	verbose  bool
	format   string
	output   string
	config   string
	astJSON  string
	pretty   bool
	language string
	root     string
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [options] <language> <path>\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Languages: java, kotlin, swift, rust, python\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  %s python /path/to/project\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s -workers 8 -v kotlin /path/to/project\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s -format json -output report.json java /path/to/project\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s -ast-json matches.jsonl rust /path/to/project\n", os.Args[0])
}

// newLogger 诊断日志统一写标准错误，不污染行式结果输出
func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// newDetector 按语言标识创建检测器，未知语言返回 nil
func newDetector(language string, logger *zap.Logger) detectors.Detector {
	switch language {
	case "java":
		return detectors.NewJavaDetector()
	case "kotlin":
		return detectors.NewKotlinDetector()
	case "swift":
		return detectors.NewSwiftDetector()
	case "rust":
		return detectors.NewRustDetector()
	case "python":
		return detectors.NewPythonDetector(logger)
	default:
		return nil
	}
}

// mergeConfig 配置文件提供缺省值，显式给出的命令行参数保持不变
func mergeConfig(opts *options, cfg *core.Config, set map[string]bool) {
	if cfg == nil {
		return
	}
	if cfg.Workers > 0 && !set["workers"] {
		opts.workers = cfg.Workers
	}
	if cfg.Format != "" && !set["format"] {
		opts.format = cfg.Format
	}
	if cfg.Output != "" && !set["output"] {
		opts.output = cfg.Output
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	defaultWorkers := runtime.NumCPU()
	if defaultWorkers < 1 {
		defaultWorkers = 1
	}
	if defaultWorkers > 32 {
		defaultWorkers = 32
	}

	var opts options
	flag.IntVar(&opts.workers, "workers", defaultWorkers, "Number of worker goroutines (default: NumCPU, capped at 32)")
	flag.BoolVar(&opts.verbose, "v", false, "Verbose diagnostics on stderr")
	flag.StringVar(&opts.format, "format", "text", "Report format for -output (text, json, sarif)")
	flag.StringVar(&opts.output, "output", "", "Write a report to this file in addition to line output")
	flag.StringVar(&opts.config, "config", "", "YAML config file path")
	flag.StringVar(&opts.astJSON, "ast-json", "", "Structural match input for rust (line-delimited JSON)")
	flag.BoolVar(&opts.pretty, "pretty", false, "Indent JSON/SARIF report output")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 2 {
		usage()
		return 2
	}
	opts.language = flag.Arg(0)
	opts.root = flag.Arg(1)

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	var cfg *core.Config
	if opts.config != "" {
		loaded, err := core.LoadConfig(opts.config)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 2
		}
		cfg = loaded
		mergeConfig(&opts, cfg, set)
	}

	logger := newLogger(opts.verbose)
	defer logger.Sync()

	detector := newDetector(opts.language, logger)
	if detector == nil {
		fmt.Fprintf(os.Stderr, "Error: unsupported language %q\n\n", opts.language)
		usage()
		return 2
	}

	format, err := report.ParseFormat(opts.format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		usage()
		return 2
	}

	// 路径不存在视为空扫描，无输出正常退出
	if _, err := os.Stat(opts.root); err != nil {
		return 0
	}

	skipDirs := make(map[string]bool)
	for dir := range detector.SkipDirs() {
		skipDirs[dir] = true
	}
	if cfg != nil {
		for _, dir := range cfg.SkipDirs {
			skipDirs[dir] = true
		}
	}

	start := time.Now()
	findings, filesScanned := scan(detector, opts, skipDirs, logger)

	reporter := core.NewReporter(os.Stdout)
	reporter.EmitAll(findings)

	if opts.output != "" {
		result := &report.ScanResult{
			Findings:     reporter.Emitted(),
			Language:     opts.language,
			Root:         opts.root,
			Detector:     detector.Name(),
			Duration:     time.Since(start),
			FilesScanned: filesScanned,
		}
		mgrOpts := []report.ManagerOption{
			report.WithFormat(format),
			report.WithOutputPath(opts.output),
		}
		if opts.pretty {
			mgrOpts = append(mgrOpts, report.WithPretty())
		}
		if _, err := report.NewManager(mgrOpts...).Generate(result); err != nil {
			logger.Error("report generation failed", zap.Error(err))
			return 1
		}
	}

	return 0
}

// scan 执行一次完整扫描，返回按文件顺序排列的结果和实际分析的文件数
func scan(detector detectors.Detector, opts options, skipDirs map[string]bool, logger *zap.Logger) ([]core.Finding, int) {
	// Rust 可选的结构化匹配输入：有命中时取代正则扫描，否则静默回退
	if opts.language == "rust" && opts.astJSON != "" {
		if rd, ok := detector.(*detectors.RustDetector); ok {
			if findings := rd.AnalyzeFeed(opts.root, opts.astJSON); len(findings) > 0 {
				logger.Debug("structural match input used",
					zap.String("path", opts.astJSON),
					zap.Int("findings", len(findings)))
				return findings, 0
			}
			logger.Debug("structural match input unusable, falling back to text scan",
				zap.String("path", opts.astJSON))
		}
	}

	files, err := core.CollectFiles(opts.root, detector.Extensions(), skipDirs)
	if err != nil {
		logger.Warn("file collection failed", zap.String("root", opts.root), zap.Error(err))
		return nil, 0
	}
	logger.Debug("files collected", zap.Int("count", len(files)))

	analyze := func(path string) []core.Finding {
		source, err := os.ReadFile(path)
		if err != nil {
			// 行式输出不受影响，仅 Python 路径提示跳过的文件
			if opts.language == "python" {
				logger.Warn("skipping unreadable file", zap.String("path", path), zap.Error(err))
			}
			return nil
		}
		return detector.AnalyzeFile(core.DisplayPath(opts.root, path), source)
	}

	pool := core.NewWorkerPool(opts.workers)
	ordered := pool.Run(context.Background(), files, analyze)

	var findings []core.Finding
	for _, fs := range ordered {
		findings = append(findings, fs...)
	}
	return findings, len(files)
}
