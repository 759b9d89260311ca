package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	lerror "lula/error"
	plogger "lula/logger"
	"lula/profile"
	"lula/service"

	"github.com/spf13/cobra"
)

var (
	// serve flags
	logDirPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the indicator extraction service on an inbox directory",
	Long: `serve watches the inbox directory named by the profile's service section,
runs every arriving bundle file through the indicator filter and appends
the survivors to the destination file, one JSON document per line. The
profile itself is watched too; edits apply to the next bundle without a
restart. SIGINT or SIGTERM drains the pipeline and stops the service.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&logDirPath, "log-dir", "", "directory for the service log (default: working directory)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := requireProfile("serve"); err != nil {
		return err
	}

	// make shutdown context by signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logDir := logDirPath
	if logDir == "" {
		pwd, err := os.Getwd()
		if err != nil {
			return lerror.LulaGeneralError{
				Code:   lerror.SystemError,
				Origin: err,
				Msg:    "error while run serve",
			}
		}
		logDir = pwd
	}
	loger := plogger.NewLogger(logDir)

	prof, err := profile.NewProfileFile(profilePath)
	if err != nil {
		loger.Close()
		return err
	}

	svc, err := service.NewService(prof, loger)
	if err != nil {
		loger.Close()
		return err
	}

	if err = svc.Start(); err != nil {
		loger.Close()
		return err
	}

	go func() {
		<-ctx.Done()
		fmt.Println("Shutting down...")
		if err := svc.Stop(); err != nil {
			fmt.Printf("error while stop service %v\n", err)
		}
	}()

	fmt.Print(logo)

	err = svc.Wait()
	if err != nil {
		fmt.Printf("error while wait service %v\n", err)
		stop()
	}
	fmt.Println("Service stopped")
	loger.Close()
	return nil
}
