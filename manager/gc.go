package manager

import (
	"github.com/RelayProject/btcrelay/relay"
)

// GCReport summarizes a GCDanglingReferences pass.
type GCReport struct {
	ScriptsPruned   int
	OutpointsPruned int
}

// GCDanglingReferences is an explicit, separately-invoked maintenance
// operation (spec §9 Open Question 1, resolved as "not automatic"): it
// scans every ScriptRecord/OutpointRecord, drops any Request id that no
// longer has a live Request row, and deletes the record entirely if that
// leaves it with no Requests. DeleteRequest never does this implicitly —
// a caller must run it on a schedule or after bulk deletes.
func (m *Manager) GCDanglingReferences() (GCReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var report GCReport

	var scriptsToDelete []relay.ID
	var scriptsToUpdate []*relay.ScriptRecord
	if err := m.ix.IterScripts(func(rec *relay.ScriptRecord) error {
		live, err := m.liveRequests(rec.Requests)
		if err != nil {
			return err
		}
		if len(live) == len(rec.Requests) {
			return nil
		}
		if len(live) == 0 {
			scriptsToDelete = append(scriptsToDelete, rec.Hash)
		} else {
			rec.Requests = live
			scriptsToUpdate = append(scriptsToUpdate, rec)
		}
		return nil
	}); err != nil {
		return report, err
	}
	for _, hash := range scriptsToDelete {
		if err := m.ix.DeleteScript(hash); err != nil {
			return report, err
		}
		report.ScriptsPruned++
	}
	for _, rec := range scriptsToUpdate {
		b := m.kv.NewBatch()
		if err := m.ix.DeleteScript(rec.Hash); err != nil {
			return report, err
		}
		if err := m.ix.PutScriptBatch(b, rec); err != nil {
			b.Abort()
			return report, err
		}
		if err := b.Commit(); err != nil {
			return report, relay.NewError("Manager.GCDanglingReferences", relay.KindStorage, err)
		}
	}

	var outpointsToDelete []relay.Outpoint
	var outpointsToUpdate []*relay.OutpointRecord
	if err := m.ix.IterOutpoints(func(rec *relay.OutpointRecord) error {
		live, err := m.liveRequests(rec.Requests)
		if err != nil {
			return err
		}
		if len(live) == len(rec.Requests) {
			return nil
		}
		if len(live) == 0 {
			outpointsToDelete = append(outpointsToDelete, rec.Prevout)
		} else {
			rec.Requests = live
			outpointsToUpdate = append(outpointsToUpdate, rec)
		}
		return nil
	}); err != nil {
		return report, err
	}
	for _, op := range outpointsToDelete {
		if err := m.ix.DeleteOutpoint(op); err != nil {
			return report, err
		}
		report.OutpointsPruned++
	}
	for _, rec := range outpointsToUpdate {
		// PutOutpoint unions into an existing record, so the old one is
		// removed first for the pruned Requests set to take effect.
		if err := m.ix.DeleteOutpoint(rec.Prevout); err != nil {
			return report, err
		}
		if err := m.ix.PutOutpoint(rec); err != nil {
			return report, err
		}
	}

	log.Infof("manager: gc pruned %d scripts, %d outpoints", report.ScriptsPruned, report.OutpointsPruned)
	return report, nil
}

func (m *Manager) liveRequests(ids []relay.ID) ([]relay.ID, error) {
	var live []relay.ID
	for _, id := range ids {
		has, err := m.ix.HasRequest(id)
		if err != nil {
			return nil, err
		}
		if has {
			live = append(live, id)
		}
	}
	return live, nil
}
