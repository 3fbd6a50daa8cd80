package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/harvest-ai/nni-research-cli/internal/ml"
	"github.com/harvest-ai/nni-research-cli/internal/properties"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newServeModelCmd() *cobra.Command {
	var (
		port      int
		modelPath string
	)

	cmd := &cobra.Command{
		Use:   "serve-model",
		Short: "Serve a local linear model over gRPC for MODEL_KIND=grpc clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			if modelPath == "" {
				modelPath = properties.ModelLocation()
			}
			model, err := ml.LoadLinearModel(modelPath)
			if err != nil {
				return err
			}

			listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
			if err != nil {
				return fmt.Errorf("failed to listen on port %d: %w", port, err)
			}

			server := ml.NewModelServer(model)
			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-stop
				log.Info("[Model] shutting down")
				server.GracefulStop()
			}()

			log.WithFields(log.Fields{"port": port, "model": modelPath, "features": len(model.Features)}).Info("[Model] serving")
			return server.Serve(listener)
		},
	}
	cmd.Flags().IntVar(&port, "port", 50051, "gRPC port")
	cmd.Flags().StringVar(&modelPath, "model", "", "ridge artifact path, defaults to MODEL_LOCATION")
	return cmd
}
