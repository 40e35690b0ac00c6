package docker

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
)

// EnsureImage makes sure the image referenced by the artifact is available
// locally, pulling it from the registry when missing.
func EnsureImage(ctx context.Context, cli *client.Client, logger *slog.Logger, imageRef string) error {
	_, _, err := cli.ImageInspectWithRaw(ctx, imageRef)
	if err == nil {
		return nil
	}
	if !client.IsErrNotFound(err) {
		return fmt.Errorf("failed to inspect image %s: %w", imageRef, err)
	}

	logger.Info("Pulling image", "image", imageRef)
	reader, err := cli.ImagePull(ctx, imageRef, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", imageRef, err)
	}
	defer reader.Close()

	// The pull is complete once the progress stream is drained.
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("failed to read image pull progress for %s: %w", imageRef, err)
	}

	return nil
}
