// Package server は、HTTPサーバーとリアルタイム通信を管理します。
//
// このパッケージは、HTTPサーバーの起動、ルーティング、
// WebSocket接続の管理、静的ファイルの配信を担当します。
//
// 責務:
//   - HTTPサーバーの起動とグレースフルシャットダウン
//   - WebSocket接続の確立と中継（relay）への橋渡し
//   - Server-Sent Events による共有パラメータの配信
//   - 共有パラメータのJSON API（generated.ServerInterface の実装）
//   - 静的ファイル（HTML/CSS/JS）の配信
//
// 仕様:
//   - ルーティングは gin、WebSocket は gorilla/websocket を使用
//   - 1接続につき読み込み・書き込みのゴルーチンを1つずつ持つ
//   - ソケットへの書き込みは書き込みゴルーチンだけが行う
//   - 不正なメッセージはログに残して破棄し、接続は維持する
//   - 複数クライアントの同時接続をサポート
package server
