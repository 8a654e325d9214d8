package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	cfgpkg "recordq/internal/config"
	"recordq/internal/demo"
	"recordq/internal/diag"
	"recordq/internal/watch"
	"recordq/pkg/catalog"
	"recordq/pkg/contract"
)

func newInitConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init-config [dir]",
		Short: "Write recordq.yaml and .env templates (existing files are kept)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			written, err := cfgpkg.WriteTemplate(dir)
			if err != nil {
				return configError{fmt.Errorf("生成默认配置失败: %w", err)}
			}
			for _, p := range written {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}

func newDemoCmd(a *app) *cobra.Command {
	var stats bool
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Seed the products and books datasets and run every operation on them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			en, err := demoEngines(a)
			if err != nil {
				return err
			}
			t := a.logger.Start("demo", "run")
			if err := demo.RunAll(cmd.Context(), en, cmd.OutOrStdout()); err != nil {
				return err
			}
			t.Finish("run", 0)
			if stats {
				for _, line := range diag.SnapshotLines() {
					fmt.Fprintln(cmd.ErrOrStderr(), line)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&stats, "stats", false, "结束后输出进程内指标（stderr）")
	return cmd
}

// demoEngines 绑定 products/books 两个数据集；记录类型必须分别为 product/book。
func demoEngines(a *app) (demo.Engines, error) {
	pds, err := a.rt.Dataset("products")
	if err != nil {
		return demo.Engines{}, err
	}
	bds, err := a.rt.Dataset("books")
	if err != nil {
		return demo.Engines{}, err
	}
	if pds.Record != "product" || bds.Record != "book" {
		return demo.Engines{}, fmt.Errorf("%w: demo needs products=product and books=book, got %s/%s", contract.ErrInvalidInput, pds.Record, bds.Record)
	}
	pe, err := engineFor[catalog.Product](a, pds.Format)
	if err != nil {
		return demo.Engines{}, err
	}
	be, err := engineFor[catalog.Book](a, bds.Format)
	if err != nil {
		return demo.Engines{}, err
	}
	return demo.Engines{Products: pe, ProductsPath: pds.Path, Books: be, BooksPath: bds.Path}, nil
}

// queryCmd 构造 --dataset 驱动的查询命令。
func queryCmd(a *app, use, short string, bind func(*cobra.Command), exec func(ctx context.Context, ds dataset) (any, error)) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := a.openDataset(name)
			if err != nil {
				return err
			}
			out, err := exec(cmd.Context(), ds)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVarP(&name, "dataset", "d", "products", "数据集名称（见配置 datasets）")
	bind(cmd)
	return cmd
}

func newFilterCmd(a *app) *cobra.Command {
	var where []string
	return queryCmd(a, "filter", "Print records matching every --where condition", func(c *cobra.Command) {
		c.Flags().StringArrayVarP(&where, "where", "w", nil, "条件 field<op>value，op 为 = != < <= > >= ~；可重复（逻辑与）")
	}, func(ctx context.Context, ds dataset) (any, error) {
		return ds.Filter(ctx, where)
	})
}

func newSortCmd(a *app) *cobra.Command {
	var by string
	return queryCmd(a, "sort", "Print records in stable ascending order of a field", func(c *cobra.Command) {
		c.Flags().StringVar(&by, "by", "", "排序字段")
		_ = c.MarkFlagRequired("by")
	}, func(ctx context.Context, ds dataset) (any, error) {
		return ds.Sort(ctx, by)
	})
}

func newGroupCmd(a *app) *cobra.Command {
	var by string
	return queryCmd(a, "group", "Group records by a field (groups in first-appearance order)", func(c *cobra.Command) {
		c.Flags().StringVar(&by, "by", "", "分组字段")
		_ = c.MarkFlagRequired("by")
	}, func(ctx context.Context, ds dataset) (any, error) {
		return ds.Group(ctx, by)
	})
}

func newProjectCmd(a *app) *cobra.Command {
	var fields string
	return queryCmd(a, "project", "Print selected fields of every record", func(c *cobra.Command) {
		c.Flags().StringVar(&fields, "fields", "", "逗号分隔的字段列表；单字段输出值数组")
		_ = c.MarkFlagRequired("fields")
	}, func(ctx context.Context, ds dataset) (any, error) {
		return ds.Project(ctx, cfgpkg.SplitList(fields))
	})
}

func newAddCmd(a *app) *cobra.Command {
	var sets []string
	return queryCmd(a, "add", "Append one record built from --set field=value pairs", func(c *cobra.Command) {
		c.Flags().StringArrayVar(&sets, "set", nil, "字段赋值 field=value；可重复")
	}, func(ctx context.Context, ds dataset) (any, error) {
		return ds.Add(ctx, sets)
	})
}

func newRemoveCmd(a *app) *cobra.Command {
	var where []string
	return queryCmd(a, "remove", "Remove every record matching all --where conditions", func(c *cobra.Command) {
		c.Flags().StringArrayVarP(&where, "where", "w", nil, "条件 field<op>value；至少一个")
	}, func(ctx context.Context, ds dataset) (any, error) {
		n, err := ds.Remove(ctx, where)
		if err != nil {
			return nil, err
		}
		return map[string]int{"removed": n}, nil
	})
}

func newWatchCmd(a *app) *cobra.Command {
	var (
		name     string
		where    []string
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run a filter whenever the dataset file changes (until interrupted)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := a.openDataset(name)
			if err != nil {
				return err
			}
			w, err := watch.New(ds.Path(), watch.Options{Debounce: debounce}, a.logger)
			if err != nil {
				return err
			}
			rerun := func(ctx context.Context) error {
				out, err := ds.Filter(ctx, where)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}
			if err := rerun(cmd.Context()); err != nil {
				return err
			}
			return w.Run(cmd.Context(), rerun)
		},
	}
	cmd.Flags().StringVarP(&name, "dataset", "d", "products", "数据集名称（见配置 datasets）")
	cmd.Flags().StringArrayVarP(&where, "where", "w", nil, "条件 field<op>value；可重复")
	cmd.Flags().DurationVar(&debounce, "debounce", 200*time.Millisecond, "变更合并窗口")
	return cmd
}
