package scylla

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"admin-service/internal/config"
	"admin-service/internal/util"
)

// PreparedStatements holds the statements the repositories execute. The
// admin_users table is small and keyed by admin_id; admins_by_email is
// the lookup table for login. Platform users live in the bucketed users
// table shared with the rest of the platform.
type PreparedStatements struct {
	CreateAdmin        *gocql.Query
	CreateAdminByEmail *gocql.Query
	GetAdminIDByEmail  *gocql.Query
	GetAdminByID       *gocql.Query
	ListAdmins         *gocql.Query
	UpdateAdminRole    *gocql.Query
	UpdateAdminProfile *gocql.Query
	DeactivateAdmin    *gocql.Query
	RecordAdminLogin   *gocql.Query

	GetUserByID      *gocql.Query
	GetUserIDByEmail *gocql.Query
}

type ScyllaClient struct {
	Session      *gocql.Session
	config       *config.ScyllaConfig
	Prepared     *PreparedStatements
	prepareMutex sync.RWMutex
	isPrepared   bool
}

func NewScyllaClient(cfg *config.Config) (*ScyllaClient, error) {
	scyllaConfig := cfg.Scylla

	cluster := gocql.NewCluster(scyllaConfig.Nodes...)
	cluster.Keyspace = scyllaConfig.Keyspace
	cluster.Consistency = gocql.LocalQuorum
	cluster.Timeout = 10 * time.Second
	cluster.ConnectTimeout = 10 * time.Second
	cluster.NumConns = 4
	cluster.SocketKeepalive = 30 * time.Second
	cluster.MaxPreparedStmts = 1000
	cluster.MaxRoutingKeyInfo = 1000
	cluster.PageSize = 1000
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		Min:        time.Second,
		Max:        10 * time.Second,
		NumRetries: 3,
	}

	if scyllaConfig.Username != "" && scyllaConfig.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: scyllaConfig.Username,
			Password: scyllaConfig.Password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create scylla session: %w", err)
	}

	client := &ScyllaClient{
		Session: session,
		config:  &scyllaConfig,
	}

	if err := client.prepareStatements(); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	util.Info("ScyllaDB client initialized with prepared statements",
		util.Strings("nodes", scyllaConfig.Nodes),
		util.String("keyspace", scyllaConfig.Keyspace))

	return client, nil
}

func (s *ScyllaClient) prepareStatements() error {
	s.prepareMutex.Lock()
	defer s.prepareMutex.Unlock()

	if s.isPrepared {
		return nil
	}

	prepared := &PreparedStatements{}

	prepared.CreateAdmin = s.Session.Query(`
        INSERT INTO admin_users (
            admin_id, email, full_name, role, permissions, is_active,
            created_by, created_at, updated_at, last_login, login_count,
            demoted_by, demoted_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	prepared.CreateAdminByEmail = s.Session.Query(`
        INSERT INTO admins_by_email (email, admin_id, created_at)
        VALUES (?, ?, ?)`)

	prepared.GetAdminIDByEmail = s.Session.Query(`
        SELECT admin_id FROM admins_by_email WHERE email = ?`)

	prepared.GetAdminByID = s.Session.Query(`
        SELECT admin_id, email, full_name, role, permissions, is_active,
            created_by, created_at, updated_at, last_login, login_count,
            demoted_by, demoted_at
        FROM admin_users WHERE admin_id = ?`)

	prepared.ListAdmins = s.Session.Query(`
        SELECT admin_id, email, full_name, role, permissions, is_active,
            created_by, created_at, updated_at, last_login, login_count,
            demoted_by, demoted_at
        FROM admin_users`)

	prepared.UpdateAdminRole = s.Session.Query(`
        UPDATE admin_users SET role = ?, permissions = ?, updated_at = ?
        WHERE admin_id = ?`)

	prepared.UpdateAdminProfile = s.Session.Query(`
        UPDATE admin_users SET full_name = ?, is_active = ?, updated_at = ?
        WHERE admin_id = ?`)

	prepared.DeactivateAdmin = s.Session.Query(`
        UPDATE admin_users SET is_active = ?, demoted_by = ?, demoted_at = ?, updated_at = ?
        WHERE admin_id = ?`)

	prepared.RecordAdminLogin = s.Session.Query(`
        UPDATE admin_users SET last_login = ?, login_count = ?, updated_at = ?
        WHERE admin_id = ?`)

	prepared.GetUserByID = s.Session.Query(`
        SELECT user_bucket, user_id, email, full_name, kyc_status, is_banned, created_at
        FROM users WHERE user_bucket = ? AND user_id = ?`)

	prepared.GetUserIDByEmail = s.Session.Query(`
        SELECT user_bucket, user_id FROM users_by_email WHERE email = ?`)

	s.Prepared = prepared
	s.isPrepared = true

	util.Info("ScyllaDB prepared statements created successfully")
	return nil
}

func (s *ScyllaClient) Close() {
	if s.Session != nil {
		s.Session.Close()
		util.Info("ScyllaDB client closed")
	}
}

func (s *ScyllaClient) Query(stmt string, values ...interface{}) *gocql.Query {
	return s.Session.Query(stmt, values...)
}

func (s *ScyllaClient) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var clusterName string
	err := s.Session.Query(`SELECT cluster_name FROM system.local`).WithContext(ctx).Scan(&clusterName)
	if err != nil {
		return fmt.Errorf("scylla health check failed: %w", err)
	}

	util.Debug("ScyllaDB health check passed", zap.String("cluster_name", clusterName))
	return nil
}

func (s *ScyllaClient) ExecuteWithRetry(query *gocql.Query, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if err := query.Exec(); err != nil {
			lastErr = err
			if i < maxRetries {
				time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
				continue
			}
		} else {
			return nil
		}
	}
	return lastErr
}

func (s *ScyllaClient) ScanWithRetry(query *gocql.Query, dest ...interface{}) error {
	var lastErr error
	for i := 0; i < 3; i++ {
		if err := query.Scan(dest...); err != nil {
			lastErr = err
			if i < 2 {
				time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
				continue
			}
		} else {
			return nil
		}
	}
	return lastErr
}
