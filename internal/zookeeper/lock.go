// Package zookeeper 提供基于 ZooKeeper 临时顺序节点的分布式锁，
// 用于保证同一张表的变更流只有一个 relay 在转发。
package zookeeper

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"
)

const (
	lockRoot = "/ecommerce_locks" // 所有分布式锁的根节点

	defaultWaitTimeout = 30 * time.Second
)

// Conn 是对 zk.Conn 的封装，只暴露锁需要的操作
type Conn struct {
	*zk.Conn
}

// Connect 连接 ZooKeeper 集群
func Connect(servers []string, sessionTimeout time.Duration) (*Conn, error) {
	c, _, err := zk.Connect(servers, sessionTimeout, zk.WithLogInfo(false))
	if err != nil {
		return nil, fmt.Errorf("zookeeper: connect %v: %w", servers, err)
	}
	return &Conn{Conn: c}, nil
}

// ensure 创建持久节点，节点已存在时忽略
func (c *Conn) ensure(path string) error {
	exists, _, err := c.Exists(path)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = c.Create(path, []byte(""), 0, zk.WorldACL(zk.PermAll))
	if err != nil && !errors.Is(err, zk.ErrNodeExists) {
		return err
	}
	return nil
}

// DistributedLock 定义了一个分布式锁对象
type DistributedLock struct {
	conn        *Conn
	path        string // 锁的路径，例如 /ecommerce_locks/relay-orders
	lockNode    string // 成功获取锁后，自己创建的节点路径
	waitTimeout time.Duration
}

// NewDistributedLock 为 resourceID 创建锁，并确保锁路径存在
func NewDistributedLock(conn *Conn, resourceID string) (*DistributedLock, error) {
	lockPath := lockRoot + "/" + resourceID
	for _, p := range []string{lockRoot, lockPath} {
		if err := conn.ensure(p); err != nil {
			return nil, fmt.Errorf("zookeeper: create lock node %s: %w", p, err)
		}
	}
	return &DistributedLock{conn: conn, path: lockPath, waitTimeout: defaultWaitTimeout}, nil
}

// Lock 尝试获取锁，如果获取不到则阻塞等待，最长 waitTimeout
func (l *DistributedLock) Lock() error {
	// 在锁路径下创建一个临时顺序节点: /ecommerce_locks/<resourceID>/lock-
	nodePath, err := l.conn.CreateProtectedEphemeralSequential(l.path+"/lock-", []byte(""), zk.WorldACL(zk.PermAll))
	if err != nil {
		return fmt.Errorf("zookeeper: create sequential node: %w", err)
	}
	l.lockNode = nodePath
	myNode := strings.TrimPrefix(nodePath, l.path+"/")
	deadline := time.After(l.waitTimeout)

	for {
		children, _, err := l.conn.Children(l.path)
		if err != nil {
			return l.abandon(fmt.Errorf("zookeeper: list children: %w", err))
		}

		prev, err := predecessor(children, myNode)
		if err != nil {
			return l.abandon(err)
		}
		if prev == "" {
			return nil
		}

		// 只监听前一个节点，避免惊群
		exists, _, events, err := l.conn.ExistsW(l.path + "/" + prev)
		if err != nil {
			return l.abandon(fmt.Errorf("zookeeper: watch previous node: %w", err))
		}
		if !exists {
			continue
		}

		select {
		case <-events:
		case <-deadline:
			return l.abandon(errors.New("zookeeper: timeout waiting for lock"))
		}
	}
}

// Unlock 释放锁
func (l *DistributedLock) Unlock() error {
	if l.lockNode == "" {
		return errors.New("zookeeper: no lock to unlock")
	}
	err := l.conn.Delete(l.lockNode, -1)
	if err != nil && !errors.Is(err, zk.ErrNoNode) {
		return fmt.Errorf("zookeeper: delete lock node: %w", err)
	}
	l.lockNode = ""
	return nil
}

// abandon 在获取失败时删除自己的节点，不阻塞后面的竞争者
func (l *DistributedLock) abandon(cause error) error {
	if err := l.Unlock(); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// predecessor 返回排在 node 前面的节点；node 最小时返回空串。
// protected 节点名带有 "_c_<guid>-" 前缀，按序号后缀排序。
func predecessor(children []string, node string) (string, error) {
	sorted := append([]string(nil), children...)
	sort.Slice(sorted, func(i, j int) bool { return sequence(sorted[i]) < sequence(sorted[j]) })

	for i, child := range sorted {
		if child != node {
			continue
		}
		if i == 0 {
			return "", nil
		}
		return sorted[i-1], nil
	}
	return "", fmt.Errorf("zookeeper: lock node %s disappeared", node)
}

func sequence(node string) string {
	if i := strings.LastIndex(node, "lock-"); i >= 0 {
		return node[i+len("lock-"):]
	}
	return node
}
