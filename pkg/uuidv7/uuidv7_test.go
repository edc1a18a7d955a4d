// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package uuidv7_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/messagely/pkg/uuidv7"
)

/*
TestNew verifies the identifiers are version 7 and ordered.
*/
func TestNew(t *testing.T) {
	first := uuidv7.New()
	second := uuidv7.New()

	parsed, err := uuid.Parse(first)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())

	assert.NotEqual(t, first, second)
	assert.Less(t, first, second)
}
