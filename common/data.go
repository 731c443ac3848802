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
 * data.go: Declaration of shared response objects
 */

package common

type DefaultJSONObject struct {
	Status  string      `json:"status"`
	Type    string      `json:"type"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
	Code    int         `json:"code"`
}

type StatusData struct {
	Uptime        uint32            `json:"uptime,string"`
	Database      string            `json:"database"`
	ActiveClients int               `json:"active_clients"`
	Counters      map[string]uint64 `json:"counters"`
}

type StatsData struct {
	Keys *[]string `json:"keys"`
}
