package storage

import (
	"context"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
)

// Job 一次 /chat 提交启动的模型生成任务，等待 /stream 取走
type Job struct {
	ID           string
	Registration string
	Stream       *schema.StreamReader[*schema.Message]
	Cancel       context.CancelFunc
	CreatedAt    time.Time

	releaseOnce sync.Once
}

// Release 关闭流并取消任务上下文，可重复调用
func (j *Job) Release() {
	j.releaseOnce.Do(func() {
		if j.Stream != nil {
			j.Stream.Close()
		}
		if j.Cancel != nil {
			j.Cancel()
		}
	})
}

type Storage interface {
	// Put 保存任务并把它标记为最近一次提交
	Put(job *Job) error
	// Take 取出并移除任务，id 为空时取最近一次提交
	Take(id string) (*Job, error)
	// Expire 释放创建时间早于 before 的任务，返回数量
	Expire(before time.Time) int
	Len() int

	Close() error
}
