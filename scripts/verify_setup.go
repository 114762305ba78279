package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// check 一项环境检查,required为false时失败只给出警告
type check struct {
	name     string
	required bool
	run      func() (detail string, ok bool)
}

var checks = []check{
	{"Go版本", false, func() (string, bool) {
		v := runtime.Version()
		return v, strings.HasPrefix(v, "go1.23") || strings.HasPrefix(v, "go1.24") || strings.HasPrefix(v, "go1.25")
	}},
	{"操作系统", true, func() (string, bool) {
		return runtime.GOOS + "/" + runtime.GOARCH, true
	}},
	{"Chrome/Chromium", false, func() (string, bool) {
		if path, found := launcher.LookPath(); found {
			return path, true
		}
		return "未找到,首次使用浏览器时rod会自动下载;也可使用 --mode static", false
	}},
	{"可用内存", true, func() (string, bool) {
		vm, err := mem.VirtualMemory()
		if err != nil {
			return err.Error(), false
		}
		availMB := vm.Available / 1024 / 1024
		return fmt.Sprintf("%d MB / %d MB", availMB, vm.Total/1024/1024), availMB >= 512
	}},
	{"CPU核心数", false, func() (string, bool) {
		n, err := cpu.Counts(true)
		if err != nil {
			return err.Error(), false
		}
		return fmt.Sprint(n), true
	}},
	{"项目结构", true, func() (string, bool) {
		var missing []string
		for _, p := range []string{"go.mod", "cmd/sheetcrawler", "internal/core", "internal/crawlers",
			"internal/extractors", "internal/sheets", "internal/models", "internal/utils", "configs"} {
			if _, err := os.Stat(p); err != nil {
				missing = append(missing, p)
			}
		}
		if len(missing) > 0 {
			return "缺少 " + strings.Join(missing, ", "), false
		}
		return "完整", true
	}},
}

func main() {
	fmt.Println("SheetCrawler 环境验证")
	fmt.Println(strings.Repeat("=", 40))

	failed := 0
	for _, c := range checks {
		detail, ok := c.run()
		switch {
		case ok:
			fmt.Printf("✅ %s: %s\n", c.name, detail)
		case c.required:
			fmt.Printf("❌ %s: %s\n", c.name, detail)
			failed++
		default:
			fmt.Printf("⚠️  %s: %s\n", c.name, detail)
		}
	}

	fmt.Println(strings.Repeat("=", 40))
	if failed > 0 {
		fmt.Printf("❌ %d 项检查未通过\n", failed)
		os.Exit(1)
	}
	fmt.Println("✅ 环境验证通过,运行 'go build -o sheetcrawler ./cmd/sheetcrawler' 构建")
}
