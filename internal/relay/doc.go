// Package relay は共有パラメータの中継（ブロードキャスト）を担う
//
// # 責務
// - 共有パラメータレコードの唯一の所有者
// - 接続中クライアントの登録と管理
// - 接続時・要求時のスナップショット送信
// - 更新要求の検証・マージと全クライアントへの再配信
//
// # 仕様
//   - 接続・更新・切断はひとつの Mutex で直列化される
//   - マージとブロードキャストは同じ臨界区間で行い、次の更新はその後に始まる
//   - ブロードキャストは各クライアントの送信キューへのノンブロッキング投入
//   - 送信キューが満杯のクライアントは切断し、他のクライアントには影響させない
//   - トランスポート（WebSocket, SSE）には依存しない。送信キューの読み出しは呼び出し側が行う
package relay
