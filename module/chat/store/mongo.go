package store

import (
	"context"
	"time"

	"MRChat/module/chat/model"
	"MRChat/tools/errs"
	"MRChat/tools/ids"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore 生产实现。db 注入而非全局取用，方便多实例/测试。
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

func (s *MongoStore) msgColl() *mongo.Collection {
	return s.db.Collection(model.MsgTableName)
}

// ===== 消息 =====

func (s *MongoStore) InsertMessage(ctx context.Context, m *model.MessageModel) error {
	if m.ServerMsgID == 0 {
		m.ServerMsgID = ids.Generate()
	}
	if m.CreateTime == 0 {
		m.CreateTime = time.Now().UnixMilli()
	}
	if _, err := s.msgColl().InsertOne(ctx, m); err != nil {
		return errs.WrapMsg(err, "insert message", "scope", m.ScopeID)
	}
	return nil
}

func (s *MongoStore) GetMessage(ctx context.Context, serverMsgID int64) (*model.MessageModel, error) {
	var out model.MessageModel
	err := s.msgColl().FindOne(ctx, bson.M{model.MsgFieldServerMsgID: serverMsgID}).Decode(&out)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errs.Wrap(err)
	}
	return &out, nil
}

func (s *MongoStore) DeleteMessage(ctx context.Context, serverMsgID int64) (*model.MessageModel, error) {
	var out model.MessageModel
	err := s.msgColl().FindOneAndDelete(ctx, bson.M{model.MsgFieldServerMsgID: serverMsgID}).Decode(&out)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errs.Wrap(err)
	}
	return &out, nil
}

func (s *MongoStore) MaxSeq(ctx context.Context, scope model.Scope) (int64, error) {
	return s.maxSeq(ctx, bson.M{model.MsgFieldScopeID: scope})
}

func (s *MongoStore) MaxSeqExcluding(ctx context.Context, scope model.Scope, excludeID int64) (int64, error) {
	return s.maxSeq(ctx, bson.M{
		model.MsgFieldScopeID:     scope,
		model.MsgFieldServerMsgID: bson.M{"$ne": excludeID},
	})
}

func (s *MongoStore) maxSeq(ctx context.Context, filter bson.M) (int64, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: model.MsgFieldSeq, Value: -1}}).
		SetProjection(bson.M{model.MsgFieldSeq: 1, "_id": 0})
	var out struct {
		Seq int64 `bson:"seq"`
	}
	err := s.msgColl().FindOne(ctx, filter, opts).Decode(&out)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, errs.Wrap(err)
	}
	return out.Seq, nil
}

func (s *MongoStore) CountAtOrBefore(ctx context.Context, scope model.Scope, ts int64) (int64, error) {
	n, err := s.msgColl().CountDocuments(ctx, bson.M{
		model.MsgFieldScopeID:    scope,
		model.MsgFieldCreateTime: bson.M{"$lte": ts},
	})
	if err != nil {
		return 0, errs.Wrap(err)
	}
	return n, nil
}

func (s *MongoStore) FindDuplicateSeq(ctx context.Context, scope model.Scope, seq int64, beforeID int64) (bool, error) {
	n, err := s.msgColl().CountDocuments(ctx, bson.M{
		model.MsgFieldScopeID:     scope,
		model.MsgFieldSeq:         seq,
		model.MsgFieldServerMsgID: bson.M{"$lt": beforeID},
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, errs.Wrap(err)
	}
	return n > 0, nil
}

func (s *MongoStore) UpdateSeq(ctx context.Context, serverMsgID int64, seq int64) error {
	_, err := s.msgColl().UpdateOne(ctx,
		bson.M{model.MsgFieldServerMsgID: serverMsgID},
		bson.M{"$set": bson.M{model.MsgFieldSeq: seq}},
	)
	return errs.Wrap(err)
}

func (s *MongoStore) ListNewest(ctx context.Context, scope model.Scope, limit int) ([]*model.MessageModel, error) {
	return s.listDesc(ctx, bson.M{model.MsgFieldScopeID: scope}, limit)
}

func (s *MongoStore) ListOlderThan(ctx context.Context, scope model.Scope, olderThan int64, limit int) ([]*model.MessageModel, error) {
	return s.listDesc(ctx, bson.M{
		model.MsgFieldScopeID: scope,
		model.MsgFieldSeq:     bson.M{"$lt": olderThan},
	}, limit)
}

func (s *MongoStore) listDesc(ctx context.Context, filter bson.M, limit int) ([]*model.MessageModel, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: model.MsgFieldSeq, Value: -1}}).
		SetLimit(int64(limit))
	cur, err := s.msgColl().Find(ctx, filter, opts)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	var out []*model.MessageModel
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.Wrap(err)
	}
	return out, nil
}

func (s *MongoStore) ListByCreateAsc(ctx context.Context, scope model.Scope) ([]*model.MessageModel, error) {
	opts := options.Find().SetSort(bson.D{{Key: model.MsgFieldCreateTime, Value: 1}})
	cur, err := s.msgColl().Find(ctx, bson.M{model.MsgFieldScopeID: scope}, opts)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	var out []*model.MessageModel
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.Wrap(err)
	}
	return out, nil
}

// ===== 会话 =====

func (s *MongoStore) sessColl() *mongo.Collection {
	return s.db.Collection(model.SessionTableName)
}

func (s *MongoStore) UpsertSession(ctx context.Context, sess *model.UserSession) error {
	_, err := s.sessColl().UpdateOne(ctx,
		bson.M{model.SessionFieldUserID: sess.UserID},
		bson.M{"$set": bson.M{
			model.SessionFieldTokenHash:  sess.TokenHash,
			model.SessionFieldCreateTime: sess.CreateTime,
			model.SessionFieldLastActive: sess.LastActive,
		}},
		options.Update().SetUpsert(true),
	)
	return errs.Wrap(err)
}

func (s *MongoStore) GetSession(ctx context.Context, userID string) (*model.UserSession, error) {
	var out model.UserSession
	err := s.sessColl().FindOne(ctx, bson.M{model.SessionFieldUserID: userID}).Decode(&out)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errs.Wrap(err)
	}
	return &out, nil
}

func (s *MongoStore) TouchSession(ctx context.Context, userID string, nowMS int64) error {
	_, err := s.sessColl().UpdateOne(ctx,
		bson.M{model.SessionFieldUserID: userID},
		bson.M{"$max": bson.M{model.SessionFieldLastActive: nowMS}},
	)
	return errs.Wrap(err)
}

// ===== 未读 =====

func (s *MongoStore) unreadColl() *mongo.Collection {
	return s.db.Collection(model.UnreadTableName)
}

func (s *MongoStore) IncrUnread(ctx context.Context, userID string, scope model.Scope, delta int64) error {
	now := time.Now().UnixMilli()
	_, err := s.unreadColl().UpdateOne(ctx,
		bson.M{model.UnreadFieldUserID: userID, model.UnreadFieldScopeID: scope},
		bson.M{
			"$inc": bson.M{model.UnreadFieldUnread: delta},
			"$set": bson.M{model.UnreadFieldUpdateTime: now},
		},
		options.Update().SetUpsert(true),
	)
	return errs.Wrap(err)
}

func (s *MongoStore) ClearUnread(ctx context.Context, userID string, scope model.Scope) error {
	now := time.Now().UnixMilli()
	_, err := s.unreadColl().UpdateOne(ctx,
		bson.M{model.UnreadFieldUserID: userID, model.UnreadFieldScopeID: scope},
		bson.M{"$set": bson.M{
			model.UnreadFieldUnread:     int64(0),
			model.UnreadFieldUpdateTime: now,
		}},
		options.Update().SetUpsert(true),
	)
	return errs.Wrap(err)
}

func (s *MongoStore) GetUnread(ctx context.Context, userID string, scope model.Scope) (int64, error) {
	var out model.UnreadCounter
	err := s.unreadColl().FindOne(ctx,
		bson.M{model.UnreadFieldUserID: userID, model.UnreadFieldScopeID: scope},
	).Decode(&out)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, errs.Wrap(err)
	}
	return out.Unread, nil
}

func (s *MongoStore) SumUnread(ctx context.Context, userID string) (int64, error) {
	cur, err := s.unreadColl().Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{model.UnreadFieldUserID: userID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$" + model.UnreadFieldUnread},
		}}},
	})
	if err != nil {
		return 0, errs.Wrap(err)
	}
	var rows []struct {
		Total int64 `bson:"total"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, errs.Wrap(err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}

// ===== 协作方 =====

func (s *MongoStore) GroupMembers(ctx context.Context, groupID string) ([]string, error) {
	cur, err := s.db.Collection(model.GroupMemberTableName).Find(ctx,
		bson.M{model.GroupMemberFieldGroupID: groupID},
		options.Find().SetProjection(bson.M{model.GroupMemberFieldUserID: 1, "_id": 0}),
	)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	var rows []model.GroupMember
	if err := cur.All(ctx, &rows); err != nil {
		return nil, errs.Wrap(err)
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.UserID)
	}
	return out, nil
}

func (s *MongoStore) FindUserByUsername(ctx context.Context, username string) (*model.UserCredential, error) {
	var out model.UserCredential
	err := s.db.Collection(model.UserTableName).FindOne(ctx, bson.M{"username": username}).Decode(&out)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errs.Wrap(err)
	}
	return &out, nil
}

func (s *MongoStore) GetUsers(ctx context.Context, userIDs []string) ([]*model.UserCredential, error) {
	cur, err := s.db.Collection(model.UserTableName).Find(ctx,
		bson.M{"user_id": bson.M{"$in": userIDs}})
	if err != nil {
		return nil, errs.Wrap(err)
	}
	var out []*model.UserCredential
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.Wrap(err)
	}
	return out, nil
}

// EnsureIndexes 启动时建索引；只建缺失的。
// 注意：message 上的 (scope_id, seq) 索引故意【不】唯一——
// 发号是乐观的，短暂重复靠事后修复收敛，唯一索引会把写直接打死。
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	collections := map[string][]mongo.IndexModel{
		model.MsgTableName: {
			{
				Keys: bson.D{{Key: model.MsgFieldScopeID, Value: 1},
					{Key: model.MsgFieldSeq, Value: -1}},
				Options: options.Index().SetName("ix_scope_seq"),
			},
			{
				Keys:    bson.D{{Key: model.MsgFieldServerMsgID, Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_server_msg_id"),
			},
		},
		model.SessionTableName: {{
			Keys:    bson.D{{Key: model.SessionFieldUserID, Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_session_user"),
		}},
		model.UnreadTableName: {{
			Keys: bson.D{{Key: model.UnreadFieldUserID, Value: 1},
				{Key: model.UnreadFieldScopeID, Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_user_scope"),
		}},
		model.GroupMemberTableName: {{
			Keys: bson.D{{Key: model.GroupMemberFieldGroupID, Value: 1},
				{Key: model.GroupMemberFieldUserID, Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_group_user"),
		}},
	}

	for collName, indexes := range collections {
		coll := s.db.Collection(collName)
		existing, err := coll.Indexes().ListSpecifications(ctx)
		if err != nil {
			return errs.WrapMsg(err, "list indexes", "coll", collName)
		}
		existingNames := make(map[string]struct{}, len(existing))
		for _, spec := range existing {
			existingNames[spec.Name] = struct{}{}
		}
		for _, idx := range indexes {
			if idx.Options != nil && idx.Options.Name != nil {
				if _, ok := existingNames[*idx.Options.Name]; ok {
					continue
				}
			}
			if _, err := coll.Indexes().CreateOne(ctx, idx); err != nil {
				return errs.WrapMsg(err, "create index", "coll", collName)
			}
		}
	}
	return nil
}
