package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/yuqie6/GradeMirror/internal/bootstrap"
	"github.com/yuqie6/GradeMirror/internal/httpapi"
	"github.com/yuqie6/GradeMirror/internal/pkg/buildinfo"
	"github.com/yuqie6/GradeMirror/internal/service"
)

var (
	cfgFile  string
	semester int
	core     *bootstrap.Core
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "grade",
		Short: "GradeMirror - 本地学期成绩追踪与目标分析",
		Long:  `GradeMirror 在本地记录各学期科目成绩，计算平均分，并推算剩余学期需要达到的最低平均分。`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			var err error
			core, err = bootstrap.NewCore(context.Background(), cfgFile)
			if err != nil {
				return fmt.Errorf("初始化失败: %w", err)
			}
			if semester > 0 {
				return core.Services.Tracker.SelectSemester(semester)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if core != nil {
				_ = core.Close()
			}
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().IntVarP(&semester, "semester", "s", 0, "当前操作的学期编号（默认第 1 学期）")

	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(setCmd())
	rootCmd.AddCommand(semesterCmd())
	rootCmd.AddCommand(subjectCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(resetCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func tracker() *service.TrackerService {
	return core.Services.Tracker
}

// showCmd 查看当前学期成绩
func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "查看当前学期的科目与成绩",
		Run: func(cmd *cobra.Command, args []string) {
			doc := tracker().Document()
			activeID := tracker().ActiveSemesterID()
			active, ok := doc.SemesterByID(activeID)
			if !ok {
				fmt.Println("暂无学期，请先设置目标学期数")
				return
			}

			name := doc.UserName
			if name == "" {
				name = "(未设置)"
			}
			fmt.Printf("👤 %s    🎯 目标 %.2f    📚 共 %d 学期\n", name, doc.TargetAvg, doc.TotalSemestersTarget)
			fmt.Println("═══════════════════════════════════════")
			fmt.Printf("第 %d 学期 [%s]\n\n", active.ID, service.SemesterStatusOf(active))
			if len(active.Subjects) == 0 {
				fmt.Println("  暂无科目，使用 `grade subject add` 添加")
				return
			}
			for _, sub := range active.Subjects {
				fmt.Printf("  %-36s  %-12s  %s\n", sub.ID, displayName(sub.Name), displayScore(sub.Score))
			}
			fmt.Printf("\n学期平均: %.2f\n", service.SemesterAverage(active))
		},
	}
}

// reportCmd 输出完整报告
func reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "查看所有学期的汇总报告（不写入历史）",
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := tracker().Report()
			if err != nil {
				return err
			}
			printReport(rep)
			return nil
		},
	}
}

// setCmd 修改全局设置
func setCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "修改用户名、目标平均分或目标学期数",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "name <名字>",
		Short: "设置用户名",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return tracker().SetUserName(cmd.Context(), args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "target <平均分>",
		Short: "设置目标平均分 (0, 100]",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("目标平均分格式错误: %w", err)
			}
			if err := tracker().SetTargetAvg(cmd.Context(), v); err != nil {
				return err
			}
			if !tracker().Validation().IsValidTarget {
				fmt.Println("⚠️  目标平均分需在 (0, 100] 区间内，分析将被阻止")
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "semesters <学期数>",
		Short: "设置目标学期数，学期列表随之扩展或截断",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("学期数格式错误: %w", err)
			}
			return tracker().SetTotalSemesters(cmd.Context(), n)
		},
	})
	return cmd
}

// semesterCmd 学期概览
func semesterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "semester",
		Short: "学期相关命令",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "列出所有学期及其状态",
		Run: func(cmd *cobra.Command, args []string) {
			doc := tracker().Document()
			activeID := tracker().ActiveSemesterID()
			for _, s := range doc.Semesters {
				marker := " "
				if s.ID == activeID {
					marker = "*"
				}
				fmt.Printf("%s 第 %d 学期  %-8s  平均 %.2f\n", marker, s.ID, service.SemesterStatusOf(s), service.SemesterAverage(s))
			}
		},
	})
	return cmd
}

// subjectCmd 科目增删改
func subjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subject",
		Short: "科目管理（通过 -s 指定学期）",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add",
		Short: "在所有学期添加一个新科目",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := tracker().AddSubject(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("✅ 已添加科目 %s\n", id)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "rename <科目ID> <名称>",
		Short: "修改科目名称（仅第 1 学期可改）",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return tracker().RenameSubject(cmd.Context(), args[0], args[1])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "score <科目ID> <分数>",
		Short: "设置当前学期科目分数（0 表示未录入）",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("分数格式错误: %w", err)
			}
			return tracker().SetScore(cmd.Context(), args[0], score)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <科目ID>",
		Short: "从所有学期删除科目",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return tracker().DeleteSubject(cmd.Context(), args[0])
		},
	})
	return cmd
}

// analyzeCmd 分析并写入历史
func analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "校验数据并计算所需平均分，结果写入历史",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("🔍 正在分析...")
			rep, err := tracker().Analyze(cmd.Context())
			if err != nil {
				return err
			}
			printReport(rep)
			return nil
		},
	}
}

// historyCmd 历史记录
func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "查看或删除分析历史",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "列出历史记录（最新在前）",
		Run: func(cmd *cobra.Command, args []string) {
			entries := tracker().History()
			if len(entries) == 0 {
				fmt.Println("暂无历史记录")
				return
			}
			for _, h := range entries {
				ts := time.UnixMilli(h.Timestamp).Format("2006-01-02 15:04")
				fmt.Printf("%s  %s  平均 %.2f  总分 %d  目标 %.2f  学期 %v\n",
					h.ID, ts, h.OverallAvg, h.TotalScore, h.TargetAvg, h.CompletedSemesters)
			}
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <记录ID>",
		Short: "删除一条历史记录",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return tracker().DeleteHistoryEntry(cmd.Context(), args[0])
		},
	})
	return cmd
}

func exportCmd() *cobra.Command {
	var output string
	var format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "导出成绩文档（json 或 xlsx）",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "json":
				payload, err := tracker().Export()
				if err != nil {
					return err
				}
				if output == "" {
					_, err = os.Stdout.Write(append(payload, '\n'))
					return err
				}
				return os.WriteFile(output, payload, 0o644)
			case "xlsx":
				if output == "" {
					return fmt.Errorf("导出 xlsx 需要通过 -o 指定文件")
				}
				payload, err := tracker().ExportWorkbook()
				if err != nil {
					return err
				}
				if err := os.WriteFile(output, payload, 0o644); err != nil {
					return err
				}
				fmt.Printf("✅ 已导出到 %s\n", output)
				return nil
			default:
				return fmt.Errorf("不支持的导出格式: %s", format)
			}
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "输出文件（json 默认 stdout）")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "导出格式：json | xlsx")
	return cmd
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <文件>",
		Short: "从 JSON 文件导入成绩文档，覆盖当前数据",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return tracker().Import(cmd.Context(), payload)
		},
	}
}

func resetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "清空所有数据并恢复默认设置",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("该操作会清空所有成绩与历史，请加 --yes 确认")
			}
			return tracker().Reset(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "确认清空")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "显示版本信息",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("grade %s (%s)\n", buildinfo.Version, buildinfo.Commit)
		},
	}
}

// serveCmd 前台运行本地 HTTP API
func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动本地 HTTP API（Ctrl+C 退出）",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if addr == "" {
				addr = core.Cfg.Server.ListenAddr
			}
			srv, err := httpapi.Start(ctx, core, httpapi.Options{ListenAddr: addr})
			if err != nil {
				return err
			}
			fmt.Printf("🌐 %s\n", srv.BaseURL())

			<-ctx.Done()
			slog.Info("正在关闭...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "监听地址（默认读取 server.listen_addr）")
	return cmd
}

func printReport(rep *service.Report) {
	fmt.Println("📊 成绩报告")
	fmt.Println("═══════════════════════════════════════")
	for _, s := range rep.Semesters {
		fmt.Printf("  第 %d 学期  %-8s  %d/%d  平均 %.2f\n", s.ID, s.Status, s.ScoredCount, s.SubjectCount, s.Average)
	}

	if len(rep.Subjects) > 0 {
		fmt.Printf("\n📚 科目平均\n")
		for _, sub := range rep.Subjects {
			fmt.Printf("  • %s: %.2f (%d 学期)\n", displayName(sub.Name), sub.Average, sub.Count)
		}
	}

	v := rep.Validation
	if !v.CanCalculate {
		fmt.Printf("\n⚠️  暂不能计算所需平均分\n")
		if v.HasPartial {
			fmt.Println("   - 存在未录完的学期")
		}
		if !v.HasComplete {
			fmt.Println("   - 至少需要一个完整学期")
		}
		if !v.IsValidTarget {
			fmt.Println("   - 目标平均分需在 (0, 100] 区间内")
		}
		if !v.IsValidSemCount {
			fmt.Println("   - 目标学期数需大于 0")
		}
		return
	}

	fmt.Printf("\n🎯 目标 %.2f    已完成 %d 学期，剩余 %d 学期\n", rep.TargetAvg, rep.CompletedCount, rep.RemainingCount)
	fmt.Printf("📈 总平均 %.2f [%s]    总分 %d\n", rep.OverallAvg, rep.OverallStatus, rep.TotalScore)
	if rep.RemainingCount == 0 {
		fmt.Println("✅ 已完成全部学期")
		return
	}
	if rep.Reachable {
		fmt.Printf("➡️  剩余学期最低需要平均 %.2f [%s]\n", rep.NeededAvg, rep.NeededStatus)
	} else {
		fmt.Printf("❌ 剩余学期需要平均 %.2f [%s]，已超过满分\n", rep.NeededAvg, rep.NeededStatus)
	}
}

func displayName(name string) string {
	if name == "" {
		return "(未命名)"
	}
	return name
}

func displayScore(score int) string {
	if score == 0 {
		return "-"
	}
	return strconv.Itoa(score)
}
