// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cli 网关的命令行: 启动服务, 导入索引数据, 以及调试用的 rpc 调用
package cli

import (
	"fmt"
	"os"

	"github.com/33cn/evmgateway/common/version"
	"github.com/33cn/evmgateway/rpc/jsonclient"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "evmgateway",
	Short: "ethereum compatible jsonrpc gateway over receipt ledger",
}

// VersionCmd version command
func VersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Get gateway version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.GetVersion())
		},
	}
}

// CallCmd 调用一个 jsonrpc 方法, 参数按位置给出
func CallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <method> [params...]",
		Short: "Call a jsonrpc method of a running gateway",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			rpcLaddr, err := cmd.Flags().GetString("rpc_laddr")
			if err != nil {
				panic(err)
			}
			var res interface{}
			ctx := jsonclient.NewRpcCtx(rpcLaddr, args[0], jsonclient.ParseParams(args[1:]), &res)
			if dec, _ := cmd.Flags().GetBool("dec"); dec {
				ctx.SetResultCb(jsonclient.QuantityResult)
			}
			ctx.Run()
		},
	}
	cmd.Flags().String("rpc_laddr", "http://localhost:7000", "http url")
	cmd.Flags().Bool("dec", false, "print a hex quantity result in decimal")
	return cmd
}

func init() {
	rootCmd.AddCommand(
		StartCmd(),
		LoadCmd(),
		CallCmd(),
		VersionCmd(),
	)
}

//Run :
func Run() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
