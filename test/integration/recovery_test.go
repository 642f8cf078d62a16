// ============================================================================
// Lunch Rotation 恢復測試套件
// ============================================================================
//
// Package: test/integration
// 文件: recovery_test.go
// 功能: 端到端恢復與並發測試
//
// 測試目標:
//   1. 行動寫入的所有文件在重新啟動後完整恢復
//   2. 單一文件損壞時只回退該文件，其餘狀態保留
//   3. 行動日誌在重新啟動後接續序號，且校驗和全部通過
//   4. 並發行動（本地與 gRPC）全部被串行化，沒有遺失
//
// ============================================================================

package integration

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ChuLiYu/lunch-rotation/internal/agenda"
	"github.com/ChuLiYu/lunch-rotation/internal/calendar"
	"github.com/ChuLiYu/lunch-rotation/internal/journal"
	"github.com/ChuLiYu/lunch-rotation/internal/server"
	"github.com/ChuLiYu/lunch-rotation/internal/store"
	"github.com/ChuLiYu/lunch-rotation/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var team = types.Roster{"Pavel", "Guilherme", "Victor", "Chris", "Alan", "Thiago", "Clayton", "Carolina"}

func oct(d int) time.Time {
	return calendar.Date(2025, time.October, d)
}

func openAgenda(t *testing.T, dir string) *agenda.Service {
	t.Helper()
	svc, err := agenda.New(agenda.Config{
		Anchor:  types.Anchor{Date: oct(9), Person: "Pavel"},
		Roster:  team,
		DataDir: dir,
		Clock:   func() time.Time { return time.Date(2025, time.October, 21, 12, 0, 0, 0, time.Local) },
	}, nil)
	require.NoError(t, err)
	return svc
}

func TestEndToEndRecovery(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	svc := openAgenda(t, dir)
	require.NoError(t, svc.AddPerson("Ana"))
	require.NoError(t, svc.SetOverride(oct(24), "Thiago"))
	require.NoError(t, svc.SetPreferences("Victor", []int{4}))
	require.NoError(t, svc.SetRestaurant(oct(24), "Cantina"))
	_, err := svc.PassTurn()
	require.NoError(t, err)

	before := svc.State()
	schedule, err := svc.Schedule(oct(20), 15)
	require.NoError(t, err)
	// 模擬程序崩潰：不呼叫 Close

	t.Log("Restarting...")
	restarted := openAgenda(t, dir)
	defer restarted.Close()

	assert.Equal(t, before, restarted.State())
	assert.Equal(t, "Cantina", restarted.Restaurants()["2025-10-24"])

	replayed, err := restarted.Schedule(oct(20), 15)
	require.NoError(t, err)
	assert.Equal(t, schedule, replayed, "identical state must reproduce the identical schedule")

	_, err = restarted.SkipDay()
	require.NoError(t, err)
	svc.Close()

	events, err := restarted.History(100)
	require.NoError(t, err)
	require.Len(t, events, 6)
	for i, e := range events {
		assert.Equal(t, uint64(i+1), e.Seq)
		assert.NoError(t, journal.VerifyChecksum(e))
	}
}

func TestPartialCorruptionRecovery(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	svc := openAgenda(t, dir)
	require.NoError(t, svc.SetOverride(oct(22), "Alan"))
	require.NoError(t, svc.SwapPeople("Pavel", "Victor"))
	require.NoError(t, svc.Close())

	require.NoError(t, os.WriteFile(filepath.Join(dir, store.OverridesFile), []byte(`{"2025-10-22": `), 0644))

	restarted := openAgenda(t, dir)
	defer restarted.Close()

	state := restarted.State()
	assert.Empty(t, state.Overrides, "corrupt overrides fall back to empty")
	assert.Equal(t, "Victor", state.Roster[0], "roster survives")
	assert.Equal(t, 2, state.Offset)

	who, err := restarted.Resolve(oct(9))
	require.NoError(t, err)
	assert.Equal(t, "Pavel", who)
}

func TestConcurrentActions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	svc := openAgenda(t, dir)
	defer svc.Close()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	gs := server.NewGRPCServer(svc)
	go func() { _ = gs.Serve(lis) }()
	defer gs.Stop()

	conn, err := server.Dial(lis.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	client := server.NewClient(conn)

	const perSide = 20
	var wg sync.WaitGroup
	errs := make(chan error, 2*perSide)

	start := time.Now()
	for i := 0; i < perSide; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.PassTurn()
			errs <- err
		}()
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_, err := client.PassTurn(ctx)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	t.Logf("%d concurrent actions in %v", 2*perSide, time.Since(start))

	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, (2*perSide)%len(team), svc.State().Offset)
	st, err := svc.Status()
	require.NoError(t, err)
	assert.Equal(t, uint64(2*perSide), st.JournalSeq)
}
