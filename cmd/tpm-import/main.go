package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"tpm/internal/client"
	"tpm/internal/config"
	"tpm/internal/importer"
	"tpm/internal/logger"
	"tpm/internal/model"
	"tpm/internal/parser"
)

var (
	serverURL = flag.String("server", "", "台账服务地址 (默认 http://localhost:<配置端口>)")
	category  = flag.String("category", "", "写入每行的设备类别 (默认取配置)")
	maxRows   = flag.Int("max-rows", -1, "最大数据行数 (默认取配置，0 不限制)")
	dryRun    = flag.Bool("dry-run", false, "只解析与校验，不提交")
	timeout   = flag.Duration("timeout", 2*time.Minute, "提交超时")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "用法: %s [选项] <file.xlsx>\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, _, err := config.LoadConfigWithInfo()
	if err != nil {
		cfg = config.DefaultConfig()
	}
	logger.Initialize(cfg.Server.LogEnv)
	defer logger.Sync()

	if *serverURL == "" {
		*serverURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}
	if *category == "" {
		*category = cfg.Import.DefaultCategory
	}
	if *maxRows < 0 {
		*maxRows = cfg.Import.MaxRows
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := run(ctx, flag.Arg(0), importer.Options{DefaultCategory: *category, MaxRows: *maxRows})
	logger.Sync()
	os.Exit(code)
}

func run(ctx context.Context, path string, opts importer.Options) int {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法打开文件: %v\n", err)
		return 1
	}
	defer f.Close()

	pipeline := importer.NewPipeline(client.New(*serverURL, *timeout))

	prepared, err := pipeline.Prepare(f, opts)
	if err != nil {
		report(err)
		return 1
	}
	fmt.Printf("Sheet \"%s\": %d 行, %d 行通过校验, %d 行被拒绝\n",
		prepared.Sheet, prepared.Total, len(prepared.Accepted), len(prepared.Rejected))

	if *dryRun {
		printFailures(prepared.Rejected)
		return exitCode(len(prepared.Rejected))
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	result, err := pipeline.Submit(ctx, prepared)
	if err != nil {
		report(err)
		return 1
	}

	fmt.Printf("成功 %d 行, 失败 %d 行\n", result.SuccessCount, result.ErrorCount)
	printFailures(result.Errors)
	return exitCode(result.ErrorCount)
}

func report(err error) {
	var missing *parser.MissingColumnsError
	var empty *parser.EmptyFileError
	var submit *importer.SubmissionError
	var apiErr *client.APIError

	switch {
	case errors.As(err, &missing):
		fmt.Fprintf(os.Stderr, "缺少必填列: %v\n", missing.Missing)
	case errors.As(err, &empty):
		fmt.Fprintln(os.Stderr, "文件没有数据行")
	case errors.As(err, &apiErr):
		fmt.Fprintf(os.Stderr, "服务端拒绝 (HTTP %d): %s\n", apiErr.Status, apiErr.Message)
	case errors.As(err, &submit):
		fmt.Fprintf(os.Stderr, "提交 %d 行失败: %v\n", submit.Rows, submit.Err)
	default:
		fmt.Fprintf(os.Stderr, "导入失败: %v\n", err)
	}
	logger.Log.Error("import failed", zap.Error(err))
}

func printFailures(failures []model.ImportFailure) {
	for _, f := range failures {
		fmt.Printf("  行 %d [%s]: %s\n", f.Line, f.Serial, f.Message)
	}
}

func exitCode(failed int) int {
	if failed > 0 {
		return 3
	}
	return 0
}
