/**
 * Tenta Captive Portal
 *
 *    Copyright 2018 Tenta, LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 * For any questions, please contact developer@tenta.io
 *
 * garbageman.go: Database expiry sweeper
 */

package runtime

import (
	"fmt"
	"time"

	"tenta-portal/log"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// garbageman sweeps client sighting records whose timestamp prefix has aged
// past the database TTL. Keys look like client/<unix>/<ip>, so a prefix
// range up to the cutoff second catches everything expired.
func garbageman(cfg Config, rt *Runtime) {
	lg := log.GetLogger("garbageman")
	lg.Debug("Starting up")
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	var collected int
	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Unix() - cfg.DatabaseTTL

			iter := rt.DB.NewIterator(&util.Range{Start: []byte("client/"), Limit: append([]byte(fmt.Sprintf("client/%d", cutoff)), 0xFF)}, nil)
			droplist := make([][]byte, 0)
			for iter.Next() {
				k := make([]byte, len(iter.Key()))
				copy(k, iter.Key())
				droplist = append(droplist, k)
			}
			iter.Release()
			batch := new(leveldb.Batch)
			for _, k := range droplist {
				batch.Delete(k)
				collected += 1
			}
			if len(droplist) > 0 {
				rt.Stats.TickN("database", "delete", uint64(len(droplist)))
				lg.Debugf("Collected %d expired client records (%d lifetime)", len(droplist), collected)
			}
			if err := rt.DB.Write(batch, nil); err != nil {
				lg.Warnf("Failed applying transaction: %s", err.Error())
				rt.Stats.TickN("database", "delete_error", uint64(len(droplist)))
			}
		case <-rt.stop:
			lg.Debug("Shutting down")
			rt.wg.Done()
			return
		}
	}
}
