// Command finetune uploads a training file, starts a fine-tuning job,
// and polls until the job finishes, printing the resulting model name.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
)

var (
	trainingFile string
	baseModel    string
	epochs       int
	batchSize    int
	lrMultiplier float64
	pollInterval time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "finetune",
		Short:         "Fine-tune the pen-pal model on exported conversations",
		RunE:          run,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.Flags().StringVar(&trainingFile, "file", "conversations.jsonl", "training file in chat JSONL format")
	rootCmd.Flags().StringVar(&baseModel, "model", "gpt-4o-mini-2024-07-18", "base model to fine-tune")
	rootCmd.Flags().IntVar(&epochs, "epochs", 3, "number of training epochs")
	rootCmd.Flags().IntVar(&batchSize, "batch-size", 4, "training batch size")
	rootCmd.Flags().Float64Var(&lrMultiplier, "lr-multiplier", 0.05, "learning rate multiplier")
	rootCmd.Flags().DurationVar(&pollInterval, "poll-interval", 30*time.Second, "how often to poll job status")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is not set")
	}

	ctx := context.Background()
	client := openai.NewClient(apiKey)

	// Upload the training file
	upload, err := client.CreateFile(ctx, openai.FileRequest{
		FileName: filepath.Base(trainingFile),
		FilePath: trainingFile,
		Purpose:  "fine-tune",
	})
	if err != nil {
		return fmt.Errorf("upload training file: %w", err)
	}
	fmt.Println("File ID:", upload.ID)

	job, err := client.CreateFineTuningJob(ctx, openai.FineTuningJobRequest{
		TrainingFile: upload.ID,
		Model:        baseModel,
		Hyperparameters: &openai.Hyperparameters{
			Epochs:                 epochs,
			LearningRateMultiplier: lrMultiplier,
			BatchSize:              batchSize,
		},
	})
	if err != nil {
		return fmt.Errorf("create fine-tuning job: %w", err)
	}
	fmt.Println("Fine-tune Job ID:", job.ID)

	// Poll until the job reaches a terminal status
	for {
		status, err := client.RetrieveFineTuningJob(ctx, job.ID)
		if err != nil {
			return fmt.Errorf("retrieve job status: %w", err)
		}
		fmt.Println("Status:", status.Status)

		switch status.Status {
		case "succeeded":
			fmt.Println("Fine-tuned Model Name:", status.FineTunedModel)
			return nil
		case "failed", "cancelled":
			return fmt.Errorf("fine-tuning job %s ended with status %s", job.ID, status.Status)
		}
		time.Sleep(pollInterval)
	}
}
