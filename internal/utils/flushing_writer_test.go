package utils_test

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/secretmigrate/internal/utils"
)

func TestFlushingWriterFlushesBufferedOutput(testInstance *testing.T) {
	var destination bytes.Buffer
	bufferedWriter := bufio.NewWriterSize(&destination, 4096)

	writer := utils.NewFlushingWriter(bufferedWriter)
	_, writeError := writer.Write([]byte("acme-db-pass,migrated\n"))
	require.NoError(testInstance, writeError)
	require.Equal(testInstance, "acme-db-pass,migrated\n", destination.String())

	require.Same(testInstance, writer, utils.NewFlushingWriter(writer))
}
