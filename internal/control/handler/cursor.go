package handler

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/cuongbtq/mission-control/internal/control/storage"
)

func DecodeMissionCursor(cursorStr string) (*storage.MissionCursor, error) {
	if cursorStr == "" {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(cursorStr)
	if err != nil {
		return nil, err
	}

	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, fmt.Errorf("invalid cursor format")
	}

	var finishedAt int64
	if _, err := fmt.Sscanf(parts[0], "%d", &finishedAt); err != nil {
		return nil, fmt.Errorf("invalid finished_at in cursor: %w", err)
	}

	return &storage.MissionCursor{
		FinishedAt: time.Unix(0, finishedAt).UTC(),
		JobID:      parts[1],
	}, nil
}

func EncodeMissionCursor(cursor *storage.MissionCursor) string {
	cs := fmt.Sprintf("%d|%s", cursor.FinishedAt.UnixNano(), cursor.JobID)
	return base64.StdEncoding.EncodeToString([]byte(cs))
}
