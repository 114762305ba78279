package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/RecoveryAshes/SheetCrawler/internal/core"
	"github.com/RecoveryAshes/SheetCrawler/internal/crawlers"
	"github.com/RecoveryAshes/SheetCrawler/internal/extractors"
	"github.com/RecoveryAshes/SheetCrawler/internal/models"
	"github.com/RecoveryAshes/SheetCrawler/internal/sheets"
	"github.com/RecoveryAshes/SheetCrawler/internal/utils"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string

	// HTTP头部参数
	headers           []string // 自定义HTTP请求头
	headersConfigFile string   // headers.yaml路径
	validateConfig    bool     // 验证配置文件

	// 爬取参数
	inputFile     string
	outputFile    string
	mode          string
	engine        string
	googleCount   int
	searchCount   int
	forceJS       bool
	headless      bool
	settleDelay   time.Duration
	navTimeout    time.Duration
	saveDebugHTML bool
	resume        bool
	noProgress    bool
)

// appConfig 在PersistentPreRunE中加载
var appConfig *core.Config

var rootCmd = &cobra.Command{
	Use:   "sheetcrawler",
	Short: "表格驱动的商品信息爬取工具",
	Long: `SheetCrawler - 表格驱动的商品信息爬取工具

读取CSV/XLSX表格,按行访问表格中的URL,把提取结果作为新列写回:
  • search_on_google_url → Google_Headings
  • search_page_url      → Search_Page_Titles
  • detail_page_url      → Product Overview, About This Item

页面先静态加载,内容不足或遇到验证码时回退到浏览器渲染。

示例:
  sheetcrawler -i products.xlsx
  sheetcrawler -i products.csv -o result.xlsx --force-js
  sheetcrawler -i products.csv -H "Accept-Language: de-DE" --engine chromedp
  sheetcrawler --validate-config

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		// 命令行参数覆盖配置文件
		if cmd.Flags().Changed("log-level") {
			config.MergeCLIFlags(core.CLIOverrides{LogLevel: &logLevel})
		} else if verbose {
			level := "debug"
			config.MergeCLIFlags(core.CLIOverrides{LogLevel: &level})
		}

		if err := utils.InitLogger(config.LogConfig()); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}

		appConfig = config
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		headersPath := appConfig.Headers.ConfigFile
		if headersConfigFile != "" {
			headersPath = headersConfigFile
		}

		headerManager, err := core.NewHeaderManager(headersPath, headers)
		if err != nil {
			return fmt.Errorf("创建HTTP头部管理器失败: %w", err)
		}

		if validateConfig {
			return runValidateConfig(cmd, headerManager)
		}

		// 如果没有提供输入表格,显示帮助信息
		if inputFile == "" {
			return cmd.Help()
		}

		return runCrawl(cmd, headerManager)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	// 版本信息不需要加载配置和日志
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("SheetCrawler %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

// runValidateConfig 验证配置并打印生效的(脱敏)头部
func runValidateConfig(cmd *cobra.Command, headerManager *core.HeaderManager) error {
	utils.Info("🔍 验证配置...")

	applyFlagOverrides(cmd)
	if err := appConfig.Validate(); err != nil {
		return fmt.Errorf("配置验证失败: %w", err)
	}

	if err := headerManager.LoadConfig(); err != nil {
		return fmt.Errorf("加载头部配置失败: %w", err)
	}
	if err := headerManager.Validate(); err != nil {
		return fmt.Errorf("头部配置验证失败: %w", err)
	}

	utils.Info("✅ 配置验证通过!")
	utils.Infof("加载模式: %s, 浏览器引擎: %s, 无头模式: %v",
		appConfig.Crawl.Mode, appConfig.Browser.Engine, appConfig.Crawl.Headless)
	utils.Infof("当前有效的HTTP头部: %s", headerManager.SafeHeadersString())
	return nil
}

// runCrawl 读取表格,逐行爬取并写出结果
func runCrawl(cmd *cobra.Command, headerManager *core.HeaderManager) error {
	applyFlagOverrides(cmd)

	output, err := ValidateFlags(inputFile, outputFile)
	if err != nil {
		return err
	}
	if err := appConfig.Validate(); err != nil {
		return err
	}

	// 提前验证头部,避免运行到一半才失败
	if _, err := headerManager.GetHeaders(); err != nil {
		return fmt.Errorf("HTTP头部配置无效: %w", err)
	}
	utils.Debugf("HTTP头部: %s", headerManager.SafeHeadersString())

	sheet, err := sheets.Read(inputFile)
	if err != nil {
		return err
	}
	utils.Infof("📄 读取表格: %s (%d 行, %d 列)", inputFile, len(sheet.Rows), len(sheet.Columns))

	crawlConfig := appConfig.GetCrawlConfig()
	browserConfig := appConfig.BrowserConfig()

	var static *crawlers.StaticFetcher
	if crawlConfig.Mode != models.ModeDynamic && !crawlConfig.ForceJS {
		static, err = crawlers.NewStaticFetcher(crawlers.StaticFetcherConfig{
			Timeout:          crawlConfig.NavigationTimeout,
			IgnoreCertErrors: browserConfig.IgnoreCertErrors,
		}, headerManager)
		if err != nil {
			return err
		}
	}

	var gate *crawlers.BrowserGate
	if crawlConfig.Mode != models.ModeStatic {
		launcher, err := crawlers.NewLauncher(browserConfig, headerManager)
		if err != nil {
			return err
		}
		monitor := crawlers.NewResourceMonitor(appConfig.ResourceMonitorConfig())
		gate = crawlers.NewBrowserGate(launcher, crawlConfig.StartupTimeout, monitor)
		defer gate.Stop()
	}

	loader := crawlers.NewPageLoader(
		crawlers.LoaderConfigFrom(crawlConfig, appConfig.Output.SaveDebugHTML, appConfig.Output.DebugDir),
		static, gate,
	)

	// 设置信号处理: 取消运行并立即关闭浏览器
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			utils.Warnf("\n收到中断信号: %v, 正在关闭...", sig)
			cancel()
			if gate != nil {
				gate.Stop()
			}
		case <-ctx.Done():
		}
	}()

	orchestrator := core.NewOrchestrator(
		loader,
		extractors.NewSet(crawlConfig.GoogleCount, crawlConfig.SearchCount),
		appConfig.Columns,
		crawlConfig,
	)
	if gate != nil {
		orchestrator.SetBrowser(gate)
	}
	orchestrator.SetCheckpoint(core.NewCheckpointManager(appConfig.Output.CheckpointDir, inputFile), resume)

	if !noProgress {
		bar := utils.NewProgressBar(len(sheet.Rows), "处理行")
		orchestrator.SetProgressFunc(func(done, total int, percent float64) {
			_ = bar.Set(done)
		})
		defer bar.Finish()
	}

	report, runErr := orchestrator.Run(ctx, sheet)

	// 中止时也写出已完成的部分
	report.InputFile = inputFile
	report.OutputFile = output
	if err := sheets.Write(output, sheet); err != nil {
		return err
	}
	utils.Infof("💾 结果已写入: %s", output)

	reporter := utils.NewReporter(appConfig.Output.ReportDir)
	if _, err := reporter.GenerateReport(report); err != nil {
		utils.Warnf("生成报告失败: %v", err)
	}
	utils.PrintSummary(report)

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return fmt.Errorf("运行已中断,可使用 --resume 继续: %w", runErr)
		}
		return fmt.Errorf("运行提前终止: %w", runErr)
	}

	utils.Info("✨ 爬取任务完成!")
	return nil
}

// applyFlagOverrides 只合并用户显式设置的参数
func applyFlagOverrides(cmd *cobra.Command) {
	flags := cmd.Flags()
	var o core.CLIOverrides

	if flags.Changed("mode") {
		o.Mode = &mode
	}
	if flags.Changed("engine") {
		o.Engine = &engine
	}
	if flags.Changed("google-count") {
		o.GoogleCount = &googleCount
	}
	if flags.Changed("search-count") {
		o.SearchCount = &searchCount
	}
	if flags.Changed("force-js") {
		o.ForceJS = &forceJS
	}
	if flags.Changed("headless") {
		o.Headless = &headless
	}
	if flags.Changed("settle-delay") {
		o.SettleDelay = &settleDelay
	}
	if flags.Changed("timeout") {
		o.NavigationTimeout = &navTimeout
	}
	if flags.Changed("save-debug-html") {
		o.SaveDebugHTML = &saveDebugHTML
	}

	appConfig.MergeCLIFlags(o)
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式(等同 --log-level debug)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")

	// HTTP头部参数
	rootCmd.PersistentFlags().StringArrayVarP(&headers, "header", "H", []string{}, "自定义HTTP头部,格式: 'Name: Value',可多次指定")
	rootCmd.PersistentFlags().StringVar(&headersConfigFile, "headers-config", "", "HTTP头部配置文件路径 (默认 configs/headers.yaml)")
	rootCmd.PersistentFlags().BoolVar(&validateConfig, "validate-config", false, "验证配置并显示生效的HTTP头部")

	// 爬取参数
	rootCmd.Flags().StringVarP(&inputFile, "input", "i", "", "输入表格 (.csv|.xlsx)")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "输出表格 (默认 <输入文件名>_crawled.<扩展名>)")
	rootCmd.Flags().StringVarP(&mode, "mode", "m", "auto", "加载模式 (auto|static|dynamic)")
	rootCmd.Flags().StringVar(&engine, "engine", crawlers.EngineRod, "浏览器引擎 (rod|chromedp)")
	rootCmd.Flags().IntVar(&googleCount, "google-count", 5, "Google标题数量上限 (1-20)")
	rootCmd.Flags().IntVar(&searchCount, "search-count", 10, "搜索结果标题数量上限 (1-20)")
	rootCmd.Flags().BoolVar(&forceJS, "force-js", false, "所有页面都使用浏览器渲染")
	rootCmd.Flags().BoolVar(&headless, "headless", true, "无头浏览器模式")
	rootCmd.Flags().DurationVar(&settleDelay, "settle-delay", 3*time.Second, "浏览器导航后等待脚本执行的时间")
	rootCmd.Flags().DurationVar(&navTimeout, "timeout", 30*time.Second, "页面导航超时")
	rootCmd.Flags().BoolVar(&saveDebugHTML, "save-debug-html", true, "保存验证码/无结果页面的源码")
	rootCmd.Flags().BoolVar(&resume, "resume", false, "从检查点恢复")
	rootCmd.Flags().BoolVar(&noProgress, "no-progress", false, "不显示进度条")

	// 添加子命令
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
