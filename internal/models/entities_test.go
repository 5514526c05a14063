package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskStatus_CanTransition(t *testing.T) {
	cases := []struct {
		from, to TaskStatus
		want     bool
	}{
		{TaskOpen, TaskOpen, true},
		{TaskOpen, TaskInProgress, true},
		{TaskOpen, TaskCompleted, false},
		{TaskInProgress, TaskCompleted, true},
		{TaskInProgress, TaskOpen, false},
		{TaskCompleted, TaskCompleted, true},
		{TaskCompleted, TaskInProgress, false},
		{TaskOpen, TaskStatus("done"), false},
		{TaskStatus(""), TaskOpen, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.from.CanTransition(c.to), "%s -> %s", c.from, c.to)
	}
}
